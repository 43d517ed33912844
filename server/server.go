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
Package server runs the simulator's network front-end: the AUX
gateway, the Stellarium server with its position broadcaster, the UDP
discovery beacon and the periodic tick loop driving the physical
model.
*/
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/benbjohnson/clock"
	"github.com/jochym/nexsim/mount"
	"github.com/jochym/nexsim/stellarium"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Stats is the full counter sink of the front-end
type Stats interface {
	mount.Stats
	ConnStats
	SkyStats
}

// Server ties the mount to its listeners and periodic tasks
type Server struct {
	Config  Config
	Mount   *mount.Mount
	RADecOf stellarium.RADecOf
	Stats   Stats
	Clock   clock.Clock
}

// Start binds both TCP ports and runs all tasks until the context is
// cancelled. A failure to bind is returned immediately, a failure of
// any task tears the rest down.
func (s *Server) Start(ctx context.Context) error {
	s.Config.FillDefaults()
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if s.Clock == nil {
		s.Clock = clock.New()
	}
	if s.Stats != nil {
		s.Mount.SetStats(s.Stats)
	}

	auxLn, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.AuxPort))
	if err != nil {
		return fmt.Errorf("binding aux port: %w", err)
	}
	stellLn, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.StellariumPort))
	if err != nil {
		auxLn.Close()
		return fmt.Errorf("binding stellarium port: %w", err)
	}

	log.Infof("AUX gateway on %s, Stellarium on %s", auxLn.Addr(), stellLn.Addr())

	gateway := &Gateway{Mount: s.Mount, Stats: s.Stats}
	sky := &Stellarium{
		Mount:   s.Mount,
		RADecOf: s.RADecOf,
		Clock:   s.Clock,
		Stats:   s.Stats,
	}
	discovery := &Discovery{Port: s.Config.AuxPort, Clock: s.Clock}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gateway.Serve(ctx, auxLn)
	})
	g.Go(func() error {
		return sky.Serve(ctx, stellLn)
	})
	g.Go(func() error {
		return sky.Broadcast(ctx, s.Config.StatusInterval)
	})
	g.Go(func() error {
		return discovery.Run(ctx, s.Config.DiscoveryInterval)
	})
	g.Go(func() error {
		return s.tickLoop(ctx)
	})
	return g.Wait()
}

// tickLoop advances the physical model with the elapsed wall-clock
// delta on every tick interval
func (s *Server) tickLoop(ctx context.Context) error {
	ticker := s.Clock.Ticker(s.Config.TickInterval)
	defer ticker.Stop()

	last := s.Clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := s.Clock.Now()
			s.Mount.Tick(now.Sub(last).Seconds())
			last = now
		}
	}
}
