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
	"github.com/jochym/nexsim/auxbus"
)

// handler processes one command addressed to a device. The returned
// payload may be empty for a bare acknowledgement.
type handler func(sender byte, data []byte) []byte

// Device is the contract every simulated AUX bus participant fulfills.
//
// Dispatch returns (payload, true) when the device handles the
// command, (nil, false) when it does not. An unhandled command makes
// the bus stay silent, exactly like real hardware.
type Device interface {
	ID() byte
	Version() Version
	Dispatch(sender, cmd byte, data []byte) ([]byte, bool)
	Tick(dt float64)
}

// Generic is a minimal bus participant that only answers GET_VER.
// The main board and the lighting controller are modeled this way.
type Generic struct {
	id       byte
	version  Version
	handlers map[byte]handler
}

// NewGeneric returns a device answering GET_VER with the given version
func NewGeneric(id byte, version Version) *Generic {
	g := &Generic{id: id, version: version}
	g.handlers = map[byte]handler{
		auxbus.GetVer: g.getVer,
	}
	return g
}

// ID returns the bus address
func (g *Generic) ID() byte {
	return g.id
}

// Version returns the reported firmware version
func (g *Generic) Version() Version {
	return g.version
}

// Dispatch routes a command to the handler table
func (g *Generic) Dispatch(sender, cmd byte, data []byte) ([]byte, bool) {
	h, ok := g.handlers[cmd]
	if !ok {
		return nil, false
	}
	return h(sender, data), true
}

// Tick is a no-op, the device has no physical state
func (g *Generic) Tick(_ float64) {}

func (g *Generic) getVer(_ byte, _ []byte) []byte {
	return g.version[:]
}
