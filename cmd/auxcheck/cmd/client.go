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

package cmd

import (
	"bytes"
	"errors"
	"net"
	"time"

	"github.com/jochym/nexsim/auxbus"
	log "github.com/sirupsen/logrus"
)

// errNoReply means the device stayed silent within the probe timeout.
// Expected for unpopulated addresses, the bus never NAKs.
var errNoReply = errors.New("no reply from device")

// client is a minimal AUX-over-TCP client. The bridge echoes every
// request before the reply, the echo is skipped transparently.
type client struct {
	conn     net.Conn
	splitter auxbus.Splitter
	timeout  time.Duration
}

func dial(addr string, timeout time.Duration) (*client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &client{conn: conn, timeout: timeout}, nil
}

func (c *client) close() {
	c.conn.Close()
}

// request sends one command and waits for the matching response
// packet, skipping the echo
func (c *client) request(dst, cmd byte, data []byte) (*auxbus.Packet, error) {
	sent := auxbus.Encode(auxbus.AddrAPP, dst, cmd, data)
	if _, err := c.conn.Write(sent); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	buf := make([]byte, 1024)
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		n, err := c.conn.Read(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return nil, errNoReply
			}
			return nil, err
		}
		for _, frame := range c.splitter.Feed(buf[:n]) {
			if bytes.Equal(frame, sent) {
				log.Debugf("echo %x", frame)
				continue
			}
			if !auxbus.Verify(frame) {
				log.Debugf("dropping invalid frame %x", frame)
				continue
			}
			p, err := auxbus.Decode(frame)
			if err != nil {
				continue
			}
			if p.Src == dst && p.Cmd == cmd {
				return p, nil
			}
		}
	}
}
