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

/*
Package stellarium implements the binary telescope-control protocol
spoken by planetarium software: incoming goto requests and outgoing
position status packets, all little-endian.
*/
package stellarium

import (
	"encoding/binary"
	"math"
	"time"
)

// GotoPacketSize is the wire size of a goto request
const GotoPacketSize = 20

// StatusPacketSize is the wire size of a position status report
const StatusPacketSize = 24

// msgTypeGoto is the only message type clients send
const msgTypeGoto = 0

// twoPow32 scales angles: RA hours are encoded as h*2^32/24, Dec
// degrees as d*2^32/360
const twoPow32 = 4294967296.0

// RADecOf converts the mount's Alt/Az pointing into JNow RA/Dec for
// the observing site. Supplied by an external astronomy collaborator.
type RADecOf func(azRad, altRad float64, now time.Time) (raRad, decRad float64)

// Goto is a decoded slew request
type Goto struct {
	Timestamp uint64
	RAHours   float64
	DecDeg    float64
}

// DecodeGotos parses all complete goto packets out of buf. Packets
// may be concatenated, unknown message types are skipped by their
// declared size.
func DecodeGotos(buf []byte) []Goto {
	var out []Goto
	p := 0
	for p < len(buf)-2 {
		size := int(binary.LittleEndian.Uint16(buf[p : p+2]))
		if size < 4 || size > len(buf)-p {
			break
		}
		msgType := int(binary.LittleEndian.Uint16(buf[p+2 : p+4]))
		if msgType == msgTypeGoto && size >= GotoPacketSize {
			out = append(out, Goto{
				Timestamp: binary.LittleEndian.Uint64(buf[p+4 : p+12]),
				RAHours:   float64(binary.LittleEndian.Uint32(buf[p+12:p+16])) * 24.0 / twoPow32,
				DecDeg:    decodeDec(binary.LittleEndian.Uint32(buf[p+16 : p+20])),
			})
		}
		p += size
	}
	return out
}

// decodeDec maps the unsigned wire value back to [-180, 180) degrees
func decodeDec(raw uint32) float64 {
	d := float64(raw) * 360.0 / twoPow32
	if d >= 180.0 {
		d -= 360.0
	}
	return d
}

// EncodeStatus builds a 24-byte position report from JNow
// coordinates in radians
func EncodeStatus(now time.Time, raRad, decRad float64) []byte {
	msg := make([]byte, StatusPacketSize)
	binary.LittleEndian.PutUint16(msg[0:2], StatusPacketSize)
	binary.LittleEndian.PutUint16(msg[2:4], msgTypeGoto)
	binary.LittleEndian.PutUint64(msg[4:12], uint64(now.UTC().UnixMicro()))
	binary.LittleEndian.PutUint32(msg[12:16], angleToWire(raRad))
	binary.LittleEndian.PutUint32(msg[16:20], angleToWire(decRad))
	// status, 4 bytes of zero
	return msg
}

// angleToWire encodes an angle in radians as a fraction of the full
// circle scaled to 32 bits
func angleToWire(rad float64) uint32 {
	f := rad / (2 * math.Pi)
	f = math.Mod(f, 1.0)
	if f < 0 {
		f += 1.0
	}
	return uint32(math.Floor(f * twoPow32))
}
