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

package mount

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/jochym/nexsim/auxbus"
	"github.com/stretchr/testify/require"
)

func TestWiFiVersion(t *testing.T) {
	w := NewWiFi(auxbus.AddrWiFi, perfectConfig())
	require.Equal(t, []byte{0x02, 0x28, 0x00, 0x00}, mustDispatch(t, w, auxbus.GetVer, nil))
}

func TestWiFiPing(t *testing.T) {
	w := NewWiFi(auxbus.AddrWiFi, perfectConfig())
	require.Equal(t, []byte{0x00}, mustDispatch(t, w, auxbus.WiFiPing, nil))
}

func TestWiFiConfigAck(t *testing.T) {
	w := NewWiFi(auxbus.AddrWiFi, perfectConfig())
	require.Equal(t, []byte{0x01}, mustDispatch(t, w, auxbus.WiFiConfig, []byte{0x31, 0x06, 0x73, 0x9D}))
}

func TestWiFiSetLocationUpdatesObserver(t *testing.T) {
	cfg := perfectConfig()
	w := NewWiFi(auxbus.AddrWiFi, cfg)

	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], math.Float32bits(50.0616))
	binary.LittleEndian.PutUint32(data[4:8], math.Float32bits(19.9373))

	require.Equal(t, []byte{0x01}, mustDispatch(t, w, auxbus.WiFiSetLocation, data))
	require.InDelta(t, 50.0616, cfg.Observer.Latitude, 1e-4)
	require.InDelta(t, 19.9373, cfg.Observer.Longitude, 1e-4)
}

func TestWiFiSetLocationShortPayload(t *testing.T) {
	cfg := perfectConfig()
	lat := cfg.Observer.Latitude
	w := NewWiFi(auxbus.AddrWiFi, cfg)

	require.Equal(t, []byte{0x01}, mustDispatch(t, w, auxbus.WiFiSetLocation, []byte{0x01, 0x02}))
	require.Equal(t, lat, cfg.Observer.Latitude, "short payload must not corrupt the observer")
}

func TestWiFiSetTimeOffset(t *testing.T) {
	w := NewWiFi(auxbus.AddrWiFi, perfectConfig())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	// one hour ahead of the wall clock, UTC, no DST
	data := []byte{0, 0, 13, 15, 6, 25, 0, 0}
	require.Equal(t, []byte{0x01}, mustDispatch(t, w, auxbus.WiFiSetTime, data))
	require.Equal(t, time.Hour, w.TimeOffset())
}

func TestWiFiSetTimeWithZone(t *testing.T) {
	w := NewWiFi(auxbus.AddrWiFi, perfectConfig())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	// 14:00 local at UTC+2 is 12:00 UTC, matching the wall clock
	data := []byte{0, 0, 14, 15, 6, 25, 2, 0}
	mustDispatch(t, w, auxbus.WiFiSetTime, data)
	require.Equal(t, time.Duration(0), w.TimeOffset())
}

func TestWiFiUnknownCommandSilent(t *testing.T) {
	w := NewWiFi(auxbus.AddrWiFi, perfectConfig())
	_, handled := w.Dispatch(auxbus.AddrAPP, 0x60, nil)
	require.False(t, handled)
}
