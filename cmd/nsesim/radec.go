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

package main

import (
	"math"
	"time"

	"github.com/jochym/nexsim/mount"
	"github.com/jochym/nexsim/stellarium"
)

// j2000 is the J2000.0 epoch
var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// gmst returns Greenwich mean sidereal time in radians
func gmst(now time.Time) float64 {
	d := now.UTC().Sub(j2000).Hours() / 24.0
	deg := 280.46061837 + 360.98564736629*d
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg * math.Pi / 180.0
}

// refract lifts a true altitude to its apparent value using Bennett's
// formula, good to about 0.1 arcmin for ground-based work
func refract(altRad float64) float64 {
	hDeg := altRad * 180.0 / math.Pi
	if hDeg < -1 {
		return altRad
	}
	rArcmin := 1.0 / math.Tan((hDeg+7.31/(hDeg+4.4))*math.Pi/180.0)
	return altRad + rArcmin/60.0*math.Pi/180.0
}

// observerRADec builds the Alt/Az to JNow RA/Dec transform for the
// mount's observing site. Latitude and longitude are re-read on every
// call so a WiFi SET_LOCATION handshake takes effect immediately.
func observerRADec(m *mount.Mount) stellarium.RADecOf {
	return func(azRad, altRad float64, now time.Time) (raRad, decRad float64) {
		obs := m.Observer()
		lat := obs.Latitude * math.Pi / 180.0
		lon := obs.Longitude * math.Pi / 180.0

		if m.RefractionEnabled() {
			altRad = refract(altRad)
		}

		sinDec := math.Sin(altRad)*math.Sin(lat) + math.Cos(altRad)*math.Cos(lat)*math.Cos(azRad)
		decRad = math.Asin(sinDec)

		// hour angle, azimuth counted from north through east
		y := -math.Sin(azRad) * math.Cos(altRad)
		x := math.Sin(altRad)*math.Cos(lat) - math.Cos(altRad)*math.Sin(lat)*math.Cos(azRad)
		ha := math.Atan2(y, x)

		lst := gmst(now) + lon
		raRad = math.Mod(lst-ha, 2*math.Pi)
		if raRad < 0 {
			raRad += 2 * math.Pi
		}
		return raRad, decRad
	}
}
