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
	"sync"

	"github.com/jochym/nexsim/auxbus"
	log "github.com/sirupsen/logrus"
)

// msgLogSize bounds the system message log kept for UI consumption
const msgLogSize = 10

// Mount is the simulated NexStar Evolution: the AUX bus with all
// devices plus the sky imperfection model. All access from connection
// handlers and the tick loop is serialized through a single coarse
// lock, motor state is not safe under concurrent mutation.
type Mount struct {
	mu sync.Mutex

	cfg *Config
	bus *Bus

	azm  *Motor
	alt  *Motor
	wifi *WiFi

	simTime float64

	coneError  float64
	nonPerp    float64
	peAmp      float64
	pePeriod   float64
	refraction bool
	clockDrift float64

	msgLog *RecentLog
}

// New builds a mount from configuration: motors on 0x10/0x11, battery
// and charger on 0xB6/0xB7, WiFi bridge on 0xB5, main board and
// lights as GET_VER-only responders. 0xB9 stays unregistered, some
// client scans probe it and expect silence.
func New(cfg *Config) (*Mount, error) {
	m := &Mount{
		cfg:    cfg,
		bus:    NewBus(),
		msgLog: NewRecentLog(msgLogSize, true),
	}

	imp := cfg.Simulator.Imperfections
	m.coneError = imp.ConeErrorArcmin / (360.0 * 60.0)
	m.nonPerp = imp.NonPerpendicularityArcmin / (360.0 * 60.0)
	m.peAmp = imp.PeriodicErrorArcsec / (360.0 * 3600.0)
	m.pePeriod = imp.PeriodicErrorPeriodSec
	m.refraction = imp.RefractionEnabled
	m.clockDrift = imp.ClockDrift

	m.azm = NewMotor(auxbus.AddrAZM, cfg)
	m.alt = NewMotor(auxbus.AddrALT, cfg)
	m.wifi = NewWiFi(auxbus.AddrWiFi, cfg)

	devices := []Device{
		m.azm,
		m.alt,
		NewPower(auxbus.AddrBAT, 12300000, 800, false),
		NewPower(auxbus.AddrCHG, 13800000, 1500, true),
		m.wifi,
		NewGeneric(auxbus.AddrMB, Version{2, 0, 0, 0}),
		NewGeneric(auxbus.AddrLights, Version{7, 11, 0, 0}),
	}
	for _, d := range devices {
		if err := m.bus.Register(d); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Bus exposes the AUX bus, mainly for tests and monitoring
func (m *Mount) Bus() *Bus {
	return m.bus
}

// AzmMotor returns the azimuth axis
func (m *Mount) AzmMotor() *Motor {
	return m.azm
}

// AltMotor returns the altitude axis
func (m *Mount) AltMotor() *Motor {
	return m.alt
}

// SetStats attaches a monitoring sink to the bus
func (m *Mount) SetStats(s Stats) {
	m.bus.SetStats(s)
}

// HandleStream processes inbound AUX bytes and returns the response
// bytes. Safe for concurrent callers, packets are serialized.
func (m *Mount) HandleStream(data []byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bus.HandleStream(data)
}

// Tick advances the simulation clock, scaled by the configured clock
// drift, and propagates to all devices.
func (m *Mount) Tick(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	actual := dt * (1.0 + m.clockDrift)
	m.simTime += actual
	m.bus.Tick(actual)
}

// SimTime returns virtual seconds since start
func (m *Mount) SimTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simTime
}

// Observer returns a copy of the current observing site
func (m *Mount) Observer() ObserverConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Observer
}

// RefractionEnabled reports whether the sky-chart path should apply
// atmospheric refraction
func (m *Mount) RefractionEnabled() bool {
	return m.refraction
}

// PrintMsg records a system message for the UI log, collapsing
// repeats, and mirrors it to the logger
func (m *Mount) PrintMsg(msg string) {
	m.msgLog.Append(msg)
	log.Info(msg)
}

// MsgLog returns the recent system messages
func (m *Mount) MsgLog() *RecentLog {
	return m.msgLog
}

// SkyAltAz produces the actual pointing as fractions of a turn from
// the mechanical axis positions, applying cone error,
// non-perpendicularity and periodic error. Refraction belongs to the
// sky-chart path and is not applied here.
func (m *Mount) SkyAltAz() (skyAzm, skyAlt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	skyAlt = m.alt.pos + m.coneError

	altDeg := skyAlt * 360.0
	altDeg = math.Max(-80.0, math.Min(80.0, altDeg))
	skyAzm = m.azm.pos + m.nonPerp*math.Tan(altDeg*math.Pi/180.0)/360.0

	if m.pePeriod > 0 {
		skyAzm += m.peAmp * math.Sin(2*math.Pi*m.simTime/m.pePeriod)
	}

	skyAzm = math.Mod(skyAzm, 1.0)
	if skyAzm < 0 {
		skyAzm += 1.0
	}
	return skyAzm, skyAlt
}
