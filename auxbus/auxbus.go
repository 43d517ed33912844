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
Package auxbus implements the Celestron AUX bus wire protocol.
It provides framing, checksum validation and a restartable stream
splitter, plus the well-known bus addresses and command ids.
*/
package auxbus

import "fmt"

// Preamble starts every AUX frame on the wire, ';' in ASCII
const Preamble = 0x3B

// MaxDataLen bounds the payload of a single frame. The length byte
// counts src+dst+cmd+data, so the longest sane frame is 32+3 bytes.
const MaxDataLen = 29

// Well-known bus addresses
const (
	AddrMB     = 0x01 // main board
	AddrHC     = 0x04 // hand controller
	AddrAZM    = 0x10 // azimuth motor controller
	AddrALT    = 0x11 // altitude motor controller
	AddrAPP    = 0x20 // client application
	AddrWiFi   = 0xB5 // Evolution WiFi bridge
	AddrBAT    = 0xB6 // battery power controller
	AddrCHG    = 0xB7 // charger
	AddrLights = 0xBF // lighting controller
)

// Motor controller and accessory command ids
const (
	MCGetPosition     = 0x01
	MCGotoFast        = 0x02
	MCSetPosition     = 0x04
	MCGetModel        = 0x05
	MCSetPosGuiderate = 0x06
	MCSetNegGuiderate = 0x07
	MCSetPosBacklash  = 0x10
	MCSlewDone        = 0x13
	MCSeekDone        = 0x18
	MCGotoSlow        = 0x17
	MCMovePos         = 0x24
	MCMoveNeg         = 0x25
	MCGetPosBacklash  = 0x40
	MCGetNegBacklash  = 0x41
	MCGetAutoguide    = 0x47
	MCGetApproach     = 0xFC
	MCSetApproach     = 0xFD

	PowerGetVoltage = 0x10
	PowerGetCurrent = 0x18

	WiFiSetTime     = 0x30
	WiFiSetLocation = 0x31
	WiFiConfig      = 0x32
	WiFiPing        = 0x49

	GetVer = 0xFE
)

// trgNames maps bus addresses to short names for log output
var trgNames = map[byte]string{
	AddrMB:     "MB",
	AddrHC:     "HC",
	AddrAZM:    "AZM",
	AddrALT:    "ALT",
	AddrAPP:    "APP",
	AddrWiFi:   "WiFi",
	AddrBAT:    "BAT",
	AddrCHG:    "CHG",
	AddrLights: "LIGHTS",
}

// cmdNames maps command ids to mnemonic names for log output
var cmdNames = map[byte]string{
	MCGetPosition:     "MC_GET_POSITION",
	MCGotoFast:        "MC_GOTO_FAST",
	MCSetPosition:     "MC_SET_POSITION",
	MCGetModel:        "MC_GET_MODEL",
	MCSetPosGuiderate: "MC_SET_POS_GUIDERATE",
	MCSetNegGuiderate: "MC_SET_NEG_GUIDERATE",
	MCSetPosBacklash:  "MC_SET_POS_BACKLASH",
	MCSlewDone:        "MC_SLEW_DONE",
	MCSeekDone:        "MC_SEEK_DONE",
	MCGotoSlow:        "MC_GOTO_SLOW",
	MCMovePos:         "MC_MOVE_POS",
	MCMoveNeg:         "MC_MOVE_NEG",
	MCGetPosBacklash:  "MC_GET_POS_BACKLASH",
	MCGetNegBacklash:  "MC_GET_NEG_BACKLASH",
	MCGetAutoguide:    "MC_GET_AUTOGUIDE_RATE",
	MCGetApproach:     "MC_GET_APPROACH",
	MCSetApproach:     "MC_SET_APPROACH",
	WiFiSetTime:       "WIFI_SET_TIME",
	WiFiSetLocation:   "WIFI_SET_LOCATION",
	WiFiConfig:        "WIFI_CONFIG",
	WiFiPing:          "WIFI_PING",
	GetVer:            "GET_VER",
}

// TargetName returns a short mnemonic for a bus address
func TargetName(addr byte) string {
	if n, ok := trgNames[addr]; ok {
		return n
	}
	return fmt.Sprintf("0x%02x", addr)
}

// CmdName returns a mnemonic for a command id
func CmdName(cmd byte) string {
	if n, ok := cmdNames[cmd]; ok {
		return n
	}
	return fmt.Sprintf("0x%02x", cmd)
}
