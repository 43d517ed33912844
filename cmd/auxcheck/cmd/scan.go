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
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jochym/nexsim/auxbus"
	log "github.com/sirupsen/logrus"
)

// scanAddrs is the address range a SkySafari-style scan probes
var scanAddrs = []byte{
	auxbus.AddrMB, auxbus.AddrHC, auxbus.AddrAZM, auxbus.AddrALT,
	0x12, 0x17, 0x20, 0xB0, 0xB2, 0xB4,
	auxbus.AddrWiFi, auxbus.AddrBAT, auxbus.AddrCHG, 0xB9, auxbus.AddrLights,
}

var scanTimeout time.Duration

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 300*time.Millisecond, "per-device probe timeout")
	RootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe the bus with GET_VER and list responding devices",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return runScan()
	},
}

func runScan() error {
	c, err := dial(server, scanTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer c.close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"addr", "device", "status", "version"})

	for _, addr := range scanAddrs {
		p, err := c.request(addr, auxbus.GetVer, nil)
		if err == errNoReply {
			table.Append([]string{
				fmt.Sprintf("0x%02x", addr),
				auxbus.TargetName(addr),
				color.YellowString("silent"),
				"",
			})
			continue
		}
		if err != nil {
			return err
		}
		version := ""
		if len(p.Data) >= 4 {
			version = fmt.Sprintf("%d.%d.%d.%d", p.Data[0], p.Data[1], p.Data[2], p.Data[3])
		} else {
			log.Debugf("0x%02x: short GET_VER payload %x", addr, p.Data)
		}
		table.Append([]string{
			fmt.Sprintf("0x%02x", addr),
			auxbus.TargetName(addr),
			color.GreenString("alive"),
			version,
		})
	}
	table.Render()
	return nil
}
