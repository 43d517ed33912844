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
	"math/rand"

	"github.com/jochym/nexsim/auxbus"
)

// Battery level status bytes reported in the voltage status payload
const (
	PowerCharging = 0x01
	PowerHigh     = 0x02
	PowerMedium   = 0x03
	PowerLow      = 0x04
	PowerCritical = 0x05
)

// Power simulates the Evolution battery (0xB6) or charger (0xB7)
// controller. Unlike motors it answers every command: unknown
// commands get an empty ack so firmware polls never trigger client
// retry storms.
type Power struct {
	id      byte
	version Version

	voltageUV uint32
	currentMA uint16
	charging  bool
	status    byte

	// jitterUV adds measurement noise to voltage reads
	jitterUV float64

	handlers map[byte]handler
}

// NewPower creates a power controller with the given electrical state
func NewPower(id byte, voltageUV uint32, currentMA uint16, charging bool) *Power {
	p := &Power{
		id:        id,
		version:   Version{1, 6, 0, 0},
		voltageUV: voltageUV,
		currentMA: currentMA,
		charging:  charging,
		status:    PowerHigh,
	}
	p.handlers = map[byte]handler{
		auxbus.PowerGetVoltage: p.getVoltageStatus,
		auxbus.PowerGetCurrent: p.getCurrent,
		auxbus.GetVer:          p.getVer,
	}
	return p
}

// SetJitter enables gaussian noise on voltage reads, sigma in microvolts
func (p *Power) SetJitter(sigmaUV float64) {
	p.jitterUV = sigmaUV
}

// SetStatus overrides the reported battery level status byte
func (p *Power) SetStatus(status byte) {
	p.status = status
}

// ID returns the bus address
func (p *Power) ID() byte {
	return p.id
}

// Version returns the reported firmware version
func (p *Power) Version() Version {
	return p.version
}

// Dispatch answers a command. Commands without a dedicated handler
// return an empty ack rather than staying silent.
func (p *Power) Dispatch(sender, cmd byte, data []byte) ([]byte, bool) {
	h, ok := p.handlers[cmd]
	if !ok {
		return []byte{}, true
	}
	return h(sender, data), true
}

// Tick is a no-op, electrical state does not drift on its own
func (p *Power) Tick(_ float64) {}

func (p *Power) getVer(_ byte, _ []byte) []byte {
	return p.version[:]
}

// getVoltageStatus builds the 6-byte payload
// [charging, level, volt_hi, volt_lo, 0, 0] with voltage in millivolts
func (p *Power) getVoltageStatus(_ byte, _ []byte) []byte {
	uv := float64(p.voltageUV)
	if p.jitterUV > 0 {
		uv += rand.NormFloat64() * p.jitterUV
	}
	mv := uint16(uv / 1000.0)
	var chg byte
	if p.charging {
		chg = 0x01
	}
	return []byte{chg, p.status, byte(mv >> 8), byte(mv), 0x00, 0x00}
}

func (p *Power) getCurrent(_ byte, _ []byte) []byte {
	return []byte{byte(p.currentMA >> 8), byte(p.currentMA)}
}
