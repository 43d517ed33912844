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
Package mount implements the simulated NexStar Evolution mount: the AUX
bus with its attached devices (motor controllers, power modules, WiFi
bridge, accessory boards) and the physical model that moves them.
*/
package mount

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

var errBadVersion = errors.New("version must be four dot-separated bytes")

// Version is a 4-byte firmware version as reported to GET_VER
type Version [4]byte

// ParseVersion converts "7.11.19.236" into a Version
func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return v, fmt.Errorf("%q: %w", s, errBadVersion)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return v, fmt.Errorf("%q: %w", s, errBadVersion)
		}
		v[i] = byte(n)
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// ObserverConfig is the observing site. Latitude and longitude may be
// rewritten at runtime by the WiFi SET_LOCATION handshake.
type ObserverConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Elevation float64 `yaml:"elevation"`
}

// Imperfections are the mechanical and optical error terms of the
// simulated hardware. All zero means a perfect mount.
type Imperfections struct {
	ConeErrorArcmin           float64 `yaml:"cone_error_arcmin"`
	NonPerpendicularityArcmin float64 `yaml:"non_perpendicularity_arcmin"`
	PeriodicErrorArcsec       float64 `yaml:"periodic_error_arcsec"`
	PeriodicErrorPeriodSec    float64 `yaml:"periodic_error_period_sec"`
	BacklashSteps             int     `yaml:"backlash_steps"`
	EncoderJitterSteps        int     `yaml:"encoder_jitter_steps"`
	RefractionEnabled         bool    `yaml:"refraction_enabled"`
	ClockDrift                float64 `yaml:"clock_drift"`
}

// SimulatorConfig groups ports and hardware parameters
type SimulatorConfig struct {
	AuxPort        int           `yaml:"aux_port"`
	StellariumPort int           `yaml:"stellarium_port"`
	WebPort        int           `yaml:"web_port"`
	MotorVersion   string        `yaml:"motor_version"`
	AltMinDeg      float64       `yaml:"alt_min_deg"`
	AltMaxDeg      float64       `yaml:"alt_max_deg"`
	Imperfections  Imperfections `yaml:"imperfections"`
}

// Config is the full simulator configuration
type Config struct {
	Observer  ObserverConfig  `yaml:"observer"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Observer: ObserverConfig{
			Latitude:  50.1822,
			Longitude: 19.7925,
			Elevation: 400,
		},
		Simulator: SimulatorConfig{
			AuxPort:        2000,
			StellariumPort: 10001,
			WebPort:        8080,
			MotorVersion:   "7.11.19.236",
			AltMinDeg:      -10,
			AltMaxDeg:      90,
			Imperfections: Imperfections{
				PeriodicErrorPeriodSec: 480,
				BacklashSteps:          50,
			},
		},
	}
}

// ReadConfig loads a yaml config file on top of the defaults
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(cData, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Perfect zeroes all imperfection parameters except the periodic
// error period, keeping ports intact
func (c *Config) Perfect() {
	p := c.Simulator.Imperfections.PeriodicErrorPeriodSec
	c.Simulator.Imperfections = Imperfections{PeriodicErrorPeriodSec: p}
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.Simulator.AuxPort <= 0 || c.Simulator.AuxPort > 65535 {
		return fmt.Errorf("invalid aux port %d", c.Simulator.AuxPort)
	}
	if c.Simulator.StellariumPort <= 0 || c.Simulator.StellariumPort > 65535 {
		return fmt.Errorf("invalid stellarium port %d", c.Simulator.StellariumPort)
	}
	if c.Observer.Latitude < -90 || c.Observer.Latitude > 90 {
		return fmt.Errorf("invalid latitude %f", c.Observer.Latitude)
	}
	if c.Observer.Longitude < -180 || c.Observer.Longitude > 180 {
		return fmt.Errorf("invalid longitude %f", c.Observer.Longitude)
	}
	if c.Simulator.AltMinDeg >= c.Simulator.AltMaxDeg {
		return fmt.Errorf("altitude limits [%f, %f] are inverted", c.Simulator.AltMinDeg, c.Simulator.AltMaxDeg)
	}
	if _, err := ParseVersion(c.Simulator.MotorVersion); err != nil {
		return err
	}
	return nil
}
