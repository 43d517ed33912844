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
	"fmt"
	"net"
	"strings"

	"github.com/jochym/nexsim/mount"
	log "github.com/sirupsen/logrus"
)

// WiFly console replies emitted by the command-mode emulation
var (
	cmdBanner  = []byte("CMD\r\n")
	exitReply  = []byte("\r\nEXIT\r\n")
	aokReply   = []byte("\r\nAOK\r\n<2.40-CEL> ")
	cmdEscape  = []byte("$$$")
	exitString = "exit"
)

// Gateway is the TCP front-end of the AUX bus. It bridges clients to
// the bus transparently and emulates the Roving Networks WiFly
// command console behind the $$$ escape.
type Gateway struct {
	Mount *mount.Mount
	Stats ConnStats
}

// ConnStats counts client connections
type ConnStats interface {
	IncAuxConnections()
}

// Serve accepts AUX clients until the context is cancelled
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("aux accept: %w", err)
		}
		if g.Stats != nil {
			g.Stats.IncAuxConnections()
		}
		go g.handleConn(ctx, conn)
	}
}

// handleConn runs the per-connection state machine. A connection
// starts transparent; $$$ switches it into the WiFly command console
// until an exit line switches it back.
func (g *Gateway) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	transparent := true
	connected := false
	buf := make([]byte, 1024)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			g.Mount.PrintMsg("Connection closed.")
			return
		}
		if n == 0 {
			continue
		}
		if !connected {
			g.Mount.PrintMsg(fmt.Sprintf("Client connected from %v", conn.RemoteAddr()))
			connected = true
		}
		data := buf[:n]

		var resp []byte
		if transparent {
			if bytes.HasPrefix(data, cmdEscape) {
				// remaining bytes in the buffer are discarded
				transparent = false
				resp = cmdBanner
			} else {
				resp = g.Mount.HandleStream(data)
			}
		} else {
			message := strings.TrimSpace(string(data))
			if message == exitString {
				transparent = true
				resp = append(append([]byte{}, data...), exitReply...)
			} else {
				resp = append(append([]byte{}, data...), aokReply...)
			}
		}

		if len(resp) > 0 {
			if _, err := conn.Write(resp); err != nil {
				log.Debugf("aux write to %v: %v", conn.RemoteAddr(), err)
				return
			}
		}
	}
}
