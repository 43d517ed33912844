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

package server

import (
	"fmt"
	"time"
)

// Config is the network front-end configuration
type Config struct {
	AuxPort        int
	StellariumPort int
	WebPort        int

	// TickInterval paces the physical model updates
	TickInterval time.Duration
	// StatusInterval paces the Stellarium position broadcasts
	StatusInterval time.Duration
	// DiscoveryInterval paces the UDP discovery bursts
	DiscoveryInterval time.Duration
}

// Default intervals of the real hardware bridge
const (
	DefaultTickInterval      = 100 * time.Millisecond
	DefaultStatusInterval    = 100 * time.Millisecond
	DefaultDiscoveryInterval = 5 * time.Second
)

// FillDefaults populates zero intervals with the hardware cadence
func (c *Config) FillDefaults() {
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.StatusInterval == 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.DiscoveryInterval == 0 {
		c.DiscoveryInterval = DefaultDiscoveryInterval
	}
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.AuxPort <= 0 || c.AuxPort > 65535 {
		return fmt.Errorf("invalid aux port %d", c.AuxPort)
	}
	if c.StellariumPort <= 0 || c.StellariumPort > 65535 {
		return fmt.Errorf("invalid stellarium port %d", c.StellariumPort)
	}
	return nil
}
