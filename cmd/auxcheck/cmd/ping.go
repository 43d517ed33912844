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
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jochym/nexsim/auxbus"
)

var pingTimeout time.Duration

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", time.Second, "probe timeout")
	RootCmd.AddCommand(pingCmd)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Run the WiFi bridge ping handshake",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return runPing()
	},
}

func runPing() error {
	c, err := dial(server, pingTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer c.close()

	start := time.Now()
	p, err := c.request(auxbus.AddrWiFi, auxbus.WiFiPing, nil)
	if err != nil {
		fmt.Println(color.RedString("[FAIL]"), err)
		return err
	}
	fmt.Printf("%s WiFi bridge answered %x in %v\n", color.GreenString("[ OK ]"), p.Data, time.Since(start).Round(time.Microsecond))
	return nil
}
