/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stellarium

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// gotoFixture builds a wire goto packet for given RA hours and Dec degrees
func gotoFixture(raHours, decDeg float64, ts uint64) []byte {
	buf := make([]byte, GotoPacketSize)
	binary.LittleEndian.PutUint16(buf[0:2], GotoPacketSize)
	binary.LittleEndian.PutUint16(buf[2:4], 0)
	binary.LittleEndian.PutUint64(buf[4:12], ts)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(raHours/24.0*twoPow32))
	d := decDeg
	if d < 0 {
		d += 360.0
	}
	binary.LittleEndian.PutUint32(buf[16:20], uint32(d/360.0*twoPow32))
	return buf
}

func TestDecodeSingleGoto(t *testing.T) {
	gotos := DecodeGotos(gotoFixture(5.5, 22.0, 1234))
	require.Len(t, gotos, 1)
	require.Equal(t, uint64(1234), gotos[0].Timestamp)
	require.InDelta(t, 5.5, gotos[0].RAHours, 1e-6)
	require.InDelta(t, 22.0, gotos[0].DecDeg, 1e-6)
}

func TestDecodeNegativeDec(t *testing.T) {
	gotos := DecodeGotos(gotoFixture(12.0, -45.0, 0))
	require.Len(t, gotos, 1)
	require.InDelta(t, -45.0, gotos[0].DecDeg, 1e-6)
}

func TestDecodeConcatenatedGotos(t *testing.T) {
	buf := append(gotoFixture(1.0, 10.0, 1), gotoFixture(2.0, 20.0, 2)...)
	gotos := DecodeGotos(buf)
	require.Len(t, gotos, 2)
	require.InDelta(t, 1.0, gotos[0].RAHours, 1e-6)
	require.InDelta(t, 2.0, gotos[1].RAHours, 1e-6)
}

func TestDecodeSkipsUnknownType(t *testing.T) {
	unknown := make([]byte, 8)
	binary.LittleEndian.PutUint16(unknown[0:2], 8)
	binary.LittleEndian.PutUint16(unknown[2:4], 99)
	buf := append(unknown, gotoFixture(3.0, 30.0, 3)...)

	gotos := DecodeGotos(buf)
	require.Len(t, gotos, 1)
	require.InDelta(t, 3.0, gotos[0].RAHours, 1e-6)
}

func TestDecodeIgnoresTruncatedPacket(t *testing.T) {
	buf := gotoFixture(1.0, 10.0, 1)[:10]
	require.Empty(t, DecodeGotos(buf))
}

func TestEncodeStatusLayout(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	msg := EncodeStatus(now, math.Pi/2, math.Pi/4)

	require.Len(t, msg, StatusPacketSize)
	require.Equal(t, uint16(StatusPacketSize), binary.LittleEndian.Uint16(msg[0:2]))
	require.Equal(t, uint16(0), binary.LittleEndian.Uint16(msg[2:4]))
	require.Equal(t, uint64(now.UnixMicro()), binary.LittleEndian.Uint64(msg[4:12]))

	// RA of pi/2 rad is a quarter circle
	ra := binary.LittleEndian.Uint32(msg[12:16])
	require.Equal(t, uint32(twoPow32/4), ra)
	// Dec of pi/4 rad is an eighth
	dec := binary.LittleEndian.Uint32(msg[16:20])
	require.Equal(t, uint32(twoPow32/8), dec)
	// status stays zero
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(msg[20:24]))
}

func TestEncodeStatusNegativeDec(t *testing.T) {
	msg := EncodeStatus(time.Unix(0, 0), 0, -math.Pi/4)
	dec := binary.LittleEndian.Uint32(msg[16:20])
	// negative angles wrap to the top of the circle
	require.Equal(t, uint32(twoPow32*7/8), dec)
}

func TestStatusRoundTripThroughGoto(t *testing.T) {
	// a status packet reinterpreted as a goto must carry the same angles
	msg := EncodeStatus(time.Unix(1750000000, 0), 2*math.Pi*5.5/24.0, 2*math.Pi*22.0/360.0)
	gotos := DecodeGotos(msg)
	require.Len(t, gotos, 1)
	require.InDelta(t, 5.5, gotos[0].RAHours, 1e-6)
	require.InDelta(t, 22.0, gotos[0].DecDeg, 1e-6)
}
