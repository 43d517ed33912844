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
	"math"
	"math/rand"

	"github.com/jochym/nexsim/auxbus"
	log "github.com/sirupsen/logrus"
)

// encoderSteps is the resolution of the AUX position encoder, 24 bit
const encoderSteps = 1 << 24

// slewRates maps MC_MOVE rate index 0-9 to fraction of a turn per second
var slewRates = [10]float64{
	0,
	0.008 / 360,
	0.017 / 360,
	0.033 / 360,
	0.067 / 360,
	0.133 / 360,
	0.5 / 360,
	1.0 / 360,
	2.0 / 360,
	4.0 / 360,
}

// gotoSlowRate caps the precision approach of MC_GOTO_SLOW
const gotoSlowRate = 0.5 / 360

// defaultMaxRate is the fast slew ceiling, 10 deg/s
const defaultMaxRate = 10000 / 360000.0

// packFraction encodes a fraction of a turn as a 24-bit big-endian
// encoder value, two's complement for negative altitudes
func packFraction(p float64) []byte {
	raw := int64(math.Round(p*encoderSteps)) & (encoderSteps - 1)
	return []byte{byte(raw >> 16), byte(raw >> 8), byte(raw)}
}

// unpackFraction decodes a 24-bit big-endian encoder value into a
// fraction of a turn in [0, 1)
func unpackFraction(b []byte) float64 {
	raw := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return float64(raw) / encoderSteps
}

// Motor simulates an AZM or ALT motor controller. The azimuth axis
// (0x10) wraps modulo a full turn, the altitude axis (0x11) is
// clamped to the configured limits.
type Motor struct {
	id      byte
	version Version

	pos       float64
	trgPos    float64
	rate      float64
	guideRate float64
	maxRate   float64

	slewing bool
	inGoto  bool

	approach      byte
	backlashSteps int
	lastDir       int
	backlashRem   float64

	jitterSigma float64
	altMin      float64
	altMax      float64

	handlers map[byte]handler
}

// NewMotor creates a motor controller for the given axis address
func NewMotor(id byte, cfg *Config) *Motor {
	version, err := ParseVersion(cfg.Simulator.MotorVersion)
	if err != nil {
		// Validate catches this earlier, fall back to the stock firmware
		version = Version{7, 11, 19, 236}
	}
	imp := cfg.Simulator.Imperfections
	m := &Motor{
		id:            id,
		version:       version,
		maxRate:       defaultMaxRate,
		backlashSteps: imp.BacklashSteps,
		jitterSigma:   float64(imp.EncoderJitterSteps) / encoderSteps,
		altMin:        cfg.Simulator.AltMinDeg / 360.0,
		altMax:        cfg.Simulator.AltMaxDeg / 360.0,
	}
	m.handlers = map[byte]handler{
		auxbus.MCGetPosition:     m.getPosition,
		auxbus.MCGotoFast:        m.gotoFast,
		auxbus.MCSetPosition:     m.setPosition,
		auxbus.MCGetModel:        m.getModel,
		auxbus.MCSetPosGuiderate: m.setPosGuiderate,
		auxbus.MCSetNegGuiderate: m.setNegGuiderate,
		auxbus.MCSetPosBacklash:  m.setBacklash,
		auxbus.MCSlewDone:        m.slewDone,
		auxbus.MCGotoSlow:        m.gotoSlow,
		auxbus.MCMovePos:         m.movePos,
		auxbus.MCMoveNeg:         m.moveNeg,
		auxbus.MCGetPosBacklash:  m.getBacklash,
		auxbus.MCGetNegBacklash:  m.getBacklash,
		auxbus.MCGetAutoguide:    m.getAutoguideRate,
		auxbus.MCGetApproach:     m.getApproach,
		auxbus.MCSetApproach:     m.setApproach,
		auxbus.GetVer:            m.getVer,
	}
	return m
}

// ID returns the bus address of the axis
func (m *Motor) ID() byte {
	return m.id
}

// Version returns the reported motor firmware version
func (m *Motor) Version() Version {
	return m.version
}

// Position returns the current mechanical position as fraction of a turn
func (m *Motor) Position() float64 {
	return m.pos
}

// Slewing reports whether the axis is in commanded motion
func (m *Motor) Slewing() bool {
	return m.slewing
}

// Dispatch routes a command to the handler table
func (m *Motor) Dispatch(sender, cmd byte, data []byte) ([]byte, bool) {
	h, ok := m.handlers[cmd]
	if !ok {
		return nil, false
	}
	return h(sender, data), true
}

func (m *Motor) getVer(_ byte, _ []byte) []byte {
	return m.version[:]
}

func (m *Motor) getPosition(_ byte, _ []byte) []byte {
	p := m.pos
	if m.jitterSigma > 0 {
		p += rand.NormFloat64() * m.jitterSigma
	}
	return packFraction(p)
}

func (m *Motor) setPosition(_ byte, data []byte) []byte {
	if len(data) < 3 {
		log.Warnf("MC 0x%02x: short MC_SET_POSITION payload %x", m.id, data)
		return []byte{}
	}
	p := unpackFraction(data)
	m.pos = p
	m.trgPos = p
	m.rate = 0
	m.slewing = false
	m.inGoto = false
	return []byte{}
}

func (m *Motor) getModel(_ byte, _ []byte) []byte {
	// NexStar Evolution
	return []byte{0x16, 0x87}
}

// shortestArc folds an azimuth distance into [-0.5, 0.5] so the axis
// never takes the long way around
func (m *Motor) shortestArc(diff float64) float64 {
	if m.id != auxbus.AddrAZM {
		return diff
	}
	if diff > 0.5 {
		diff -= 1.0
	} else if diff < -0.5 {
		diff += 1.0
	}
	return diff
}

func (m *Motor) startGoto(data []byte, maxRate float64) []byte {
	if len(data) < 3 {
		log.Warnf("MC 0x%02x: short GOTO payload %x", m.id, data)
		return []byte{}
	}
	m.trgPos = unpackFraction(data)
	m.slewing = true
	m.inGoto = true
	diff := m.shortestArc(m.trgPos - m.pos)
	if diff >= 0 {
		m.rate = maxRate
	} else {
		m.rate = -maxRate
	}
	return []byte{}
}

func (m *Motor) gotoFast(_ byte, data []byte) []byte {
	return m.startGoto(data, m.maxRate)
}

func (m *Motor) gotoSlow(_ byte, data []byte) []byte {
	return m.startGoto(data, gotoSlowRate)
}

func (m *Motor) movePos(_ byte, data []byte) []byte {
	m.rate = moveRate(data)
	m.slewing = m.rate != 0
	m.inGoto = false
	return []byte{}
}

func (m *Motor) moveNeg(_ byte, data []byte) []byte {
	m.rate = -moveRate(data)
	m.slewing = m.rate != 0
	m.inGoto = false
	return []byte{}
}

// moveRate resolves a MC_MOVE rate index, out of range stops the axis
func moveRate(data []byte) float64 {
	if len(data) < 1 || int(data[0]) >= len(slewRates) {
		return 0
	}
	return slewRates[data[0]]
}

func (m *Motor) slewDone(_ byte, _ []byte) []byte {
	if m.slewing {
		return []byte{0x00}
	}
	return []byte{0xFF}
}

func (m *Motor) setGuiderate(data []byte, sign float64) []byte {
	if len(data) < 3 {
		log.Warnf("MC 0x%02x: short guiderate payload %x", m.id, data)
		return []byte{}
	}
	raw := float64(uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]))
	// raw is arcsec*1024 per second
	m.guideRate = sign * raw / (360.0 * 3600.0 * 1024.0)
	return []byte{}
}

func (m *Motor) setPosGuiderate(_ byte, data []byte) []byte {
	return m.setGuiderate(data, 1)
}

func (m *Motor) setNegGuiderate(_ byte, data []byte) []byte {
	return m.setGuiderate(data, -1)
}

func (m *Motor) setBacklash(_ byte, data []byte) []byte {
	if len(data) < 1 {
		log.Warnf("MC 0x%02x: short MC_SET_POS_BACKLASH payload", m.id)
		return []byte{}
	}
	m.backlashSteps = int(data[0])
	return []byte{}
}

func (m *Motor) getBacklash(_ byte, _ []byte) []byte {
	return []byte{byte(m.backlashSteps)}
}

func (m *Motor) getAutoguideRate(_ byte, _ []byte) []byte {
	return []byte{240}
}

func (m *Motor) getApproach(_ byte, _ []byte) []byte {
	return []byte{m.approach}
}

func (m *Motor) setApproach(_ byte, data []byte) []byte {
	if len(data) < 1 {
		log.Warnf("MC 0x%02x: short MC_SET_APPROACH payload", m.id)
		return []byte{}
	}
	m.approach = data[0]
	return []byte{}
}

// Tick integrates dt seconds of motion: GOTO deceleration, commanded
// rate plus guide rate, backlash hysteresis, axis wrap or clamp and
// GOTO completion.
func (m *Motor) Tick(dt float64) {
	if !m.slewing && math.Abs(m.guideRate) < 1e-15 {
		return
	}

	if m.inGoto {
		diff := m.shortestArc(m.trgPos - m.pos)
		// slow down so the axis lands on target in one step
		r := math.Abs(m.rate)
		if r*dt >= math.Abs(diff) && dt > 0 {
			r = math.Abs(diff) / dt
		}
		if diff >= 0 {
			m.rate = r
		} else {
			m.rate = -r
		}
	}

	move := (m.rate + m.guideRate) * dt

	if math.Abs(move) > 1e-15 {
		dir := 1
		if move < 0 {
			dir = -1
		}
		if dir != m.lastDir {
			m.backlashRem = float64(m.backlashSteps) / encoderSteps
			m.lastDir = dir
		}
		if m.backlashRem > 0 {
			consumed := math.Min(math.Abs(move), m.backlashRem)
			m.backlashRem -= consumed
			move = float64(dir) * (math.Abs(move) - consumed)
		}
	}

	m.pos += move
	if m.id == auxbus.AddrAZM {
		m.pos = math.Mod(m.pos, 1.0)
		if m.pos < 0 {
			m.pos += 1.0
		}
	} else {
		m.pos = math.Max(m.altMin, math.Min(m.altMax, m.pos))
	}

	if m.inGoto {
		if math.Abs(m.shortestArc(m.trgPos-m.pos)) < 1e-7 {
			m.pos = m.trgPos
			m.rate = 0
			m.slewing = false
			m.inGoto = false
		}
	}
}
