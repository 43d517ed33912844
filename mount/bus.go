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
	"fmt"

	"github.com/jochym/nexsim/auxbus"
	log "github.com/sirupsen/logrus"
)

// cmdLogSize bounds the command log kept for UI consumption
const cmdLogSize = 30

// Stats is the counter sink the bus reports into
type Stats interface {
	// IncRX counts received well-formed frames
	IncRX()
	// IncInvalid counts frames dropped on checksum or length
	IncInvalid()
	// IncDropped counts frames addressed to silent devices
	IncDropped()
	// IncTX counts response packets produced
	IncTX()
}

// noopStats keeps the bus usable without a monitoring sink
type noopStats struct{}

func (noopStats) IncRX()      {}
func (noopStats) IncInvalid() {}
func (noopStats) IncDropped() {}
func (noopStats) IncTX()      {}

// Bus owns all simulated devices by address and routes decoded AUX
// frames to them. Every valid inbound frame is echoed back before its
// response, matching the half-duplex hardware gateway.
type Bus struct {
	devices  map[byte]Device
	splitter auxbus.Splitter
	cmdLog   *RecentLog
	stats    Stats
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		devices: make(map[byte]Device),
		cmdLog:  NewRecentLog(cmdLogSize, false),
		stats:   noopStats{},
	}
}

// SetStats attaches a monitoring sink
func (b *Bus) SetStats(s Stats) {
	if s != nil {
		b.stats = s
	}
}

// Register adds a device to the bus. A single device owns each
// address, duplicates are rejected.
func (b *Bus) Register(d Device) error {
	if _, ok := b.devices[d.ID()]; ok {
		return fmt.Errorf("duplicate device registration for address 0x%02x", d.ID())
	}
	b.devices[d.ID()] = d
	return nil
}

// Device returns the device registered at addr, if any
func (b *Bus) Device(addr byte) (Device, bool) {
	d, ok := b.devices[addr]
	return d, ok
}

// CmdLog returns the recent command log
func (b *Bus) CmdLog() *RecentLog {
	return b.cmdLog
}

// HandleStream splits inbound bytes into frames and processes them in
// arrival order. The returned buffer holds, per valid frame, the echo
// of the frame followed by the device response, if any. Invalid
// frames produce nothing; frames for unknown addresses or unhandled
// commands produce only the echo.
func (b *Bus) HandleStream(data []byte) []byte {
	var out []byte
	for _, frame := range b.splitter.Feed(data) {
		if !auxbus.Verify(frame) {
			b.stats.IncInvalid()
			log.Debugf("dropping invalid frame %x", frame)
			continue
		}
		b.stats.IncRX()

		// the gateway always echoes the request back
		out = append(out, frame...)

		p, err := auxbus.Decode(frame)
		if err != nil {
			// Verify guarantees this cannot happen
			b.stats.IncInvalid()
			continue
		}
		b.cmdLog.Append(fmt.Sprintf("%s: %s", auxbus.TargetName(p.Dst), auxbus.CmdName(p.Cmd)))

		d, ok := b.devices[p.Dst]
		if !ok {
			// unknown addresses stay silent, clients scan for them
			b.stats.IncDropped()
			continue
		}
		payload, handled := d.Dispatch(p.Src, p.Cmd, p.Data)
		if !handled {
			b.stats.IncDropped()
			continue
		}
		out = append(out, auxbus.Encode(p.Dst, p.Src, p.Cmd, payload)...)
		b.stats.IncTX()
	}
	return out
}

// Tick advances every device by dt seconds. Devices are independent,
// order does not matter.
func (b *Bus) Tick(dt float64) {
	for _, d := range b.devices {
		d.Tick(dt)
	}
}
