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
	"bytes"
	"context"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// discoveryPayload is the 110-byte burst the WiFly module emits so
// client apps can find the mount on the LAN
var discoveryPayload = bytes.Repeat([]byte{'X'}, 110)

// discoveryAddr is where WiFly discovery bursts go
var discoveryAddr = &net.UDPAddr{IP: net.IPv4bcast, Port: 55555}

// Discovery broadcasts WiFly discovery packets from the AUX port.
// Fire and forget: errors are logged and the task gives up quietly,
// discovery is a convenience, not a requirement.
type Discovery struct {
	Port  int
	Clock clock.Clock
}

// Run emits one burst per interval until the context is cancelled
func (d *Discovery) Run(ctx context.Context, interval time.Duration) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: d.Port})
	if err != nil {
		log.Warnf("discovery disabled, cannot bind udp port %d: %v", d.Port, err)
		return nil
	}
	defer conn.Close()

	ticker := d.Clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := conn.WriteToUDP(discoveryPayload, discoveryAddr); err != nil {
				log.Debugf("discovery send: %v", err)
			}
		}
	}
}
