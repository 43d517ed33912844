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

// nsesim simulates a Celestron NexStar Evolution mount: it speaks the
// native binary AUX protocol on one TCP port and the Stellarium
// coordinate protocol on another, so astronomy clients can be
// developed without hardware.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jochym/nexsim/mount"
	"github.com/jochym/nexsim/server"
	"github.com/jochym/nexsim/stats"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	textMode     bool
	configPath   string
	auxPort      int
	stellPort    int
	webPort      int
	perfect      bool
	debug        bool
	debugLog     bool
	debugLogFile string
)

// RootCmd is the simulator entry point
var RootCmd = &cobra.Command{
	Use:   "nsesim",
	Short: "NexStar Evolution AUX bus simulator",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.Flags().BoolVarP(&textMode, "text", "t", false, "headless text mode, no TUI")
	RootCmd.Flags().StringVarP(&configPath, "config", "c", "", "custom configuration file path")
	RootCmd.Flags().IntVarP(&auxPort, "port", "p", 0, "AUX port override")
	RootCmd.Flags().IntVarP(&stellPort, "stellarium", "s", 0, "Stellarium port override")
	RootCmd.Flags().IntVar(&webPort, "web-port", 0, "monitoring port override")
	RootCmd.Flags().BoolVar(&perfect, "perfect", false, "disable all mechanical imperfections")
	RootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging to stderr")
	RootCmd.Flags().BoolVar(&debugLog, "debug-log", false, "enable detailed debug logging to file")
	RootCmd.Flags().StringVar(&debugLogFile, "debug-log-file", "nsesim_debug.log", "debug log file path")
}

// mountState is the /state monitoring snapshot
type mountState struct {
	AzmPos    float64  `json:"azm_pos"`
	AltPos    float64  `json:"alt_pos"`
	SkyAzm    float64  `json:"sky_azm"`
	SkyAlt    float64  `json:"sky_alt"`
	SimTime   float64  `json:"sim_time"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Commands  []string `json:"commands"`
	Messages  []string `json:"messages"`
}

func configureLogging() {
	log.SetLevel(log.InfoLevel)
	if debug || debugLog {
		log.SetLevel(log.DebugLevel)
	}
	if debugLog {
		log.SetOutput(&lumberjack.Logger{
			Filename:   debugLogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		})
	}
}

func run() error {
	configureLogging()

	cfg, err := mount.ReadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if auxPort != 0 {
		cfg.Simulator.AuxPort = auxPort
	}
	if stellPort != 0 {
		cfg.Simulator.StellariumPort = stellPort
	}
	if webPort != 0 {
		cfg.Simulator.WebPort = webPort
	}
	if perfect {
		cfg.Perfect()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m, err := mount.New(cfg)
	if err != nil {
		return err
	}

	jsonStats := stats.NewJSONStats()
	jsonStats.SetStateFunc(func() any {
		skyAzm, skyAlt := m.SkyAltAz()
		obs := m.Observer()
		return &mountState{
			AzmPos:    m.AzmMotor().Position(),
			AltPos:    m.AltMotor().Position(),
			SkyAzm:    skyAzm,
			SkyAlt:    skyAlt,
			SimTime:   m.SimTime(),
			Latitude:  obs.Latitude,
			Longitude: obs.Longitude,
			Commands:  m.Bus().CmdLog().Snapshot(),
			Messages:  m.MsgLog().Snapshot(),
		}
	})
	go jsonStats.Start(cfg.Simulator.WebPort)

	if !textMode {
		log.Info("TUI not available in this build, running headless")
	}
	log.Infof("Simulator running in headless mode on port %d", cfg.Simulator.AuxPort)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &server.Server{
		Config: server.Config{
			AuxPort:        cfg.Simulator.AuxPort,
			StellariumPort: cfg.Simulator.StellariumPort,
			WebPort:        cfg.Simulator.WebPort,
		},
		Mount:   m,
		RADecOf: observerRADec(m),
		Stats:   jsonStats,
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	return nil
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
