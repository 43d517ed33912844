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
	"time"

	"github.com/jochym/nexsim/auxbus"
	log "github.com/sirupsen/logrus"
)

// WiFi simulates the Evolution WiFly bridge on address 0xB5. Clients
// run a handshake against it: set time, set location, push config,
// ping. SET_LOCATION rewrites the shared observer coordinates that
// the sky-chart path reads.
type WiFi struct {
	id      byte
	version Version
	cfg     *Config

	// offset between the commanded mount time and the wall clock,
	// kept for the monitoring surface
	timeOffset time.Duration

	now func() time.Time

	handlers map[byte]handler
}

// NewWiFi creates the WiFi bridge device
func NewWiFi(id byte, cfg *Config) *WiFi {
	w := &WiFi{
		id:      id,
		version: Version{2, 40, 0, 0},
		cfg:     cfg,
		now:     time.Now,
	}
	w.handlers = map[byte]handler{
		auxbus.WiFiSetTime:     w.setTime,
		auxbus.WiFiSetLocation: w.setLocation,
		auxbus.WiFiConfig:      w.config,
		auxbus.WiFiPing:        w.ping,
		auxbus.GetVer:          w.getVer,
	}
	return w
}

// ID returns the bus address
func (w *WiFi) ID() byte {
	return w.id
}

// Version returns the WiFly firmware version, 2.40
func (w *WiFi) Version() Version {
	return w.version
}

// TimeOffset returns the offset implied by the last SET_TIME command
func (w *WiFi) TimeOffset() time.Duration {
	return w.timeOffset
}

// Dispatch routes a command to the handler table
func (w *WiFi) Dispatch(sender, cmd byte, data []byte) ([]byte, bool) {
	h, ok := w.handlers[cmd]
	if !ok {
		return nil, false
	}
	return h(sender, data), true
}

// Tick is a no-op
func (w *WiFi) Tick(_ float64) {}

func (w *WiFi) getVer(_ byte, _ []byte) []byte {
	return w.version[:]
}

// setTime handles 0x30, payload [ss mm hh dd mo yy utc_offset dst]
// with yy counted from 2000. The implied offset against the wall
// clock is computed and logged, the simulator keeps running on its
// own clock.
func (w *WiFi) setTime(_ byte, data []byte) []byte {
	if len(data) < 8 {
		log.Warnf("WiFi: short SET_TIME payload %x", data)
		return []byte{}
	}
	offsetHours := int(int8(data[6]))
	commanded := time.Date(
		2000+int(data[5]), time.Month(data[4]), int(data[3]),
		int(data[2]), int(data[1]), int(data[0]),
		0, time.UTC,
	).Add(-time.Duration(offsetHours) * time.Hour)
	if data[7] != 0 {
		commanded = commanded.Add(-time.Hour)
	}
	w.timeOffset = commanded.Sub(w.now().UTC())
	log.Infof("WiFi received time sync, implied offset %v", w.timeOffset)
	return []byte{0x01}
}

// setLocation handles 0x31, payload is two little-endian float32
// values: latitude then longitude in degrees
func (w *WiFi) setLocation(_ byte, data []byte) []byte {
	if len(data) != 8 {
		log.Warnf("WiFi: short SET_LOCATION payload %x", data)
		return []byte{0x01}
	}
	lat := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	lon := math.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))
	log.Infof("WiFi received location: lat=%.4f lon=%.4f", lat, lon)
	w.cfg.Observer.Latitude = float64(lat)
	w.cfg.Observer.Longitude = float64(lon)
	return []byte{0x01}
}

func (w *WiFi) config(_ byte, data []byte) []byte {
	log.Debugf("WiFi config blob %x", data)
	return []byte{0x01}
}

func (w *WiFi) ping(_ byte, _ []byte) []byte {
	return []byte{0x00}
}
