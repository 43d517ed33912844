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
	"testing"

	"github.com/jochym/nexsim/auxbus"
	"github.com/stretchr/testify/require"
)

func TestMountGotoEndToEnd(t *testing.T) {
	m := testMount(t)

	m.HandleStream(auxbus.Encode(auxbus.AddrAPP, auxbus.AddrAZM, auxbus.MCSetPosition, packFraction(0)))
	m.HandleStream(auxbus.Encode(auxbus.AddrAPP, auxbus.AddrAZM, auxbus.MCGotoFast, packFraction(0.25)))

	for i := 0; i < 600; i++ {
		m.Tick(0.1)
	}

	in := auxbus.Encode(auxbus.AddrAPP, auxbus.AddrAZM, auxbus.MCGetPosition, nil)
	resp := m.HandleStream(in)
	p, err := auxbus.Decode(resp[len(in):])
	require.NoError(t, err)
	require.InDelta(t, 0.25, unpackFraction(p.Data), 1.0/encoderSteps)

	in = auxbus.Encode(auxbus.AddrAPP, auxbus.AddrAZM, auxbus.MCSlewDone, nil)
	resp = m.HandleStream(in)
	p, err = auxbus.Decode(resp[len(in):])
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF}, p.Data)
}

func TestMountSkyModelPerfect(t *testing.T) {
	m := testMount(t)
	m.azm.pos = 0.3
	m.alt.pos = 0.1

	skyAzm, skyAlt := m.SkyAltAz()
	require.InDelta(t, 0.3, skyAzm, 1e-12)
	require.InDelta(t, 0.1, skyAlt, 1e-12)
}

func TestMountSkyModelConeError(t *testing.T) {
	cfg := perfectConfig()
	cfg.Simulator.Imperfections.ConeErrorArcmin = 6 // 0.1 degree
	m, err := New(cfg)
	require.NoError(t, err)
	m.alt.pos = 0.1

	_, skyAlt := m.SkyAltAz()
	require.InDelta(t, 0.1+6.0/(360*60), skyAlt, 1e-12)
}

func TestMountSkyModelNonPerp(t *testing.T) {
	cfg := perfectConfig()
	cfg.Simulator.Imperfections.NonPerpendicularityArcmin = 60
	m, err := New(cfg)
	require.NoError(t, err)
	m.azm.pos = 0.5
	m.alt.pos = 45.0 / 360.0

	skyAzm, _ := m.SkyAltAz()
	nonPerp := 60.0 / (360 * 60.0)
	require.InDelta(t, 0.5+nonPerp*math.Tan(math.Pi/4)/360.0, skyAzm, 1e-9)
}

func TestMountSkyModelAltitudeClampedForTan(t *testing.T) {
	cfg := perfectConfig()
	cfg.Simulator.Imperfections.NonPerpendicularityArcmin = 60
	m, err := New(cfg)
	require.NoError(t, err)
	// near the pole tan would blow up, the model clamps at 80 degrees
	m.alt.pos = 89.9 / 360.0

	skyAzm, _ := m.SkyAltAz()
	require.False(t, math.IsNaN(skyAzm))
	require.Less(t, math.Abs(skyAzm-0.0), 0.01)
}

func TestMountSkyModelPeriodicError(t *testing.T) {
	cfg := perfectConfig()
	cfg.Simulator.Imperfections.PeriodicErrorArcsec = 36
	cfg.Simulator.Imperfections.PeriodicErrorPeriodSec = 480
	m, err := New(cfg)
	require.NoError(t, err)

	// a quarter period in puts the sine at its crest
	m.Tick(120)
	skyAzm, _ := m.SkyAltAz()
	amp := 36.0 / (360.0 * 3600.0)
	require.InDelta(t, amp, skyAzm, amp*0.01)
}

func TestMountClockDrift(t *testing.T) {
	cfg := perfectConfig()
	cfg.Simulator.Imperfections.ClockDrift = 0.5
	m, err := New(cfg)
	require.NoError(t, err)

	m.Tick(10)
	require.InDelta(t, 15.0, m.SimTime(), 1e-9)
}

func TestMountMsgLogDedups(t *testing.T) {
	m := testMount(t)
	m.PrintMsg("Connection closed.")
	m.PrintMsg("Connection closed.")
	m.PrintMsg("Client connected from 1.2.3.4")
	require.Equal(t, []string{"Connection closed.", "Client connected from 1.2.3.4"}, m.MsgLog().Snapshot())
}

func TestMountObserverRewrittenByWiFi(t *testing.T) {
	m := testMount(t)
	data := make([]byte, 8)
	// lat 10.5, lon -3.25 as little-endian float32
	copy(data[0:4], []byte{0x00, 0x00, 0x28, 0x41})
	copy(data[4:8], []byte{0x00, 0x00, 0x50, 0xC0})

	m.HandleStream(auxbus.Encode(auxbus.AddrAPP, auxbus.AddrWiFi, auxbus.WiFiSetLocation, data))
	obs := m.Observer()
	require.InDelta(t, 10.5, obs.Latitude, 1e-6)
	require.InDelta(t, -3.25, obs.Longitude, 1e-6)
}
