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
	"context"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jochym/nexsim/mount"
	"github.com/jochym/nexsim/stellarium"
	log "github.com/sirupsen/logrus"
)

// SkyStats counts sky-chart clients and their requests
type SkyStats interface {
	IncStellariumConnections()
	DecStellariumConnections()
	IncGotos()
}

// Stellarium serves sky-chart clients: it decodes their goto requests
// and broadcasts the mount position to all of them on a fixed cadence.
type Stellarium struct {
	Mount   *mount.Mount
	RADecOf stellarium.RADecOf
	Clock   clock.Clock
	Stats   SkyStats

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func (s *Stellarium) addConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.conns[conn] = struct{}{}
}

func (s *Stellarium) removeConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Stellarium) snapshotConns() []net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Serve accepts sky-chart clients until the context is cancelled
func (s *Stellarium) Serve(ctx context.Context, ln net.Listener) error {
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
			return fmt.Errorf("stellarium accept: %w", err)
		}
		s.Mount.PrintMsg("Stellarium client connected.")
		if s.Stats != nil {
			s.Stats.IncStellariumConnections()
		}
		s.addConn(conn)
		go s.readConn(ctx, conn)
	}
}

// readConn drains goto requests from one client
func (s *Stellarium) readConn(ctx context.Context, conn net.Conn) {
	defer func() {
		s.removeConn(conn)
		conn.Close()
		if s.Stats != nil {
			s.Stats.DecStellariumConnections()
		}
	}()
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		for _, g := range stellarium.DecodeGotos(buf[:n]) {
			if s.Stats != nil {
				s.Stats.IncGotos()
			}
			s.Mount.PrintMsg(fmt.Sprintf("Stellarium GoTo: RA=%.2fh Dec=%.2fdeg", g.RAHours, g.DecDeg))
		}
	}
}

// Broadcast pushes a position status packet to every connected client
// on each status interval
func (s *Stellarium) Broadcast(ctx context.Context, interval time.Duration) error {
	ticker := s.Clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			status := s.status()
			for _, conn := range s.snapshotConns() {
				if _, err := conn.Write(status); err != nil {
					log.Debugf("stellarium write to %v: %v", conn.RemoteAddr(), err)
					s.removeConn(conn)
					conn.Close()
				}
			}
		}
	}
}

// status builds the current position report by asking the astronomy
// collaborator for JNow coordinates of the sky pointing
func (s *Stellarium) status() []byte {
	now := s.Clock.Now()
	skyAzm, skyAlt := s.Mount.SkyAltAz()
	ra, dec := s.RADecOf(skyAzm*2*math.Pi, skyAlt*2*math.Pi, now)
	return stellarium.EncodeStatus(now, ra, dec)
}
