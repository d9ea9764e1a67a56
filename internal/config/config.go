// SPDX-License-Identifier: AGPL-3.0-or-later
// M17Host - Bridge an MMDVM modem to M17 IP networks in a single binary
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/M17Host>

package config

import (
	"regexp"
)

// Config stores the application configuration.
type Config struct {
	LogLevel LogLevel `name:"log-level" description:"Log level (debug, info, warn, error)" default:"info"`
	Callsign string   `name:"callsign" description:"Station callsign" default:""`
	CWID     CWID     `name:"cwid" description:"CW identification settings"`
	Modem    Modem    `name:"modem" description:"Modem attachment settings"`
	DStar    Mode     `name:"dstar" description:"D-STAR mode settings"`
	DMR      Mode     `name:"dmr" description:"DMR mode settings"`
	YSF      Mode     `name:"ysf" description:"System Fusion mode settings"`
	P25      Mode     `name:"p25" description:"P25 mode settings"`
	NXDN     Mode     `name:"nxdn" description:"NXDN mode settings"`
	M17      M17      `name:"m17" description:"M17 mode settings"`
	FM       Mode     `name:"fm" description:"FM mode settings"`
	AX25     Mode     `name:"ax25" description:"AX.25 mode settings"`
	Metrics  Metrics  `name:"metrics" description:"Metrics server settings"`
	PProf    PProf    `name:"pprof" description:"PProf server settings"`
}

// CWID configures periodic CW identification.
type CWID struct {
	Enabled bool `name:"enabled" description:"Send a CW ID periodically" default:"false"`
	Time    uint `name:"time" description:"Minutes between CW IDs" default:"10"`
}

// Modem configures the modem attachment.
type Modem struct {
	Protocol    ModemProtocol `name:"protocol" description:"Modem attachment protocol (uart, udp)" default:"uart"`
	UARTPort    string        `name:"uart-port" description:"Serial port of the modem" default:"/dev/ttyAMA0"`
	UARTSpeed   int           `name:"uart-speed" description:"Serial port speed" default:"115200"`
	Address     string        `name:"address" description:"UDP address of the modem"`
	Port        int           `name:"port" description:"UDP port of the modem" default:"3334"`
	RXFrequency uint32        `name:"rx-frequency" description:"Receive frequency in Hz"`
	TXFrequency uint32        `name:"tx-frequency" description:"Transmit frequency in Hz"`
	RXOffset    int16         `name:"rx-offset" description:"Receive offset in Hz"`
	TXOffset    int16         `name:"tx-offset" description:"Transmit offset in Hz"`
	RXDCOffset  int8          `name:"rx-dc-offset" description:"Receive DC offset"`
	TXDCOffset  int8          `name:"tx-dc-offset" description:"Transmit DC offset"`
	RFLevel     float32       `name:"rf-level" description:"RF power level in percent" default:"100"`
	RXLevel     float32       `name:"rx-level" description:"Receive audio level in percent" default:"50"`
	TXLevel     float32       `name:"tx-level" description:"Transmit audio level in percent" default:"50"`
	Debug       bool          `name:"debug" description:"Log modem traffic" default:"false"`
}

// Mode carries the settings shared by every simple digital-voice mode.
type Mode struct {
	Enabled         bool `name:"enabled" description:"Enable this mode" default:"false"`
	ModeHangSeconds uint `name:"mode-hang" description:"Seconds the channel stays with this mode after traffic" default:"10"`
}

// M17 configures the M17 protocol engine.
type M17 struct {
	Enabled         bool       `name:"enabled" description:"Enable M17" default:"true"`
	CAN             uint16     `name:"can" description:"Channel access number" default:"0"`
	CANFilter       bool       `name:"can-filter" description:"Only accept transmissions matching the channel access number" default:"false"`
	SelfOnly        bool       `name:"self-only" description:"Only accept transmissions addressed to this station" default:"false"`
	AllowEncryption bool       `name:"allow-encryption" description:"Accept encrypted transmissions" default:"false"`
	TXHangSeconds   uint       `name:"tx-hang" description:"Seconds without a frame before a transmission times out" default:"5"`
	ModeHangSeconds uint       `name:"mode-hang" description:"Seconds the channel stays with M17 after traffic" default:"10"`
	Network         M17Network `name:"network" description:"M17 gateway network settings"`
}

// M17Network configures the UDP link to the M17 gateway.
type M17Network struct {
	Enabled        bool   `name:"enabled" description:"Enable the M17 network" default:"false"`
	LocalAddress   string `name:"local-address" description:"Local bind address" default:"0.0.0.0"`
	LocalPort      int    `name:"local-port" description:"Local bind port" default:"17011"`
	GatewayAddress string `name:"gateway-address" description:"Gateway address" default:"127.0.0.1"`
	GatewayPort    int    `name:"gateway-port" description:"Gateway port" default:"17010"`
	Debug          bool   `name:"debug" description:"Log network traffic" default:"false"`
}

// Metrics configures the Prometheus metrics server and tracing.
type Metrics struct {
	Enabled      bool   `name:"enabled" description:"Enable the metrics server" default:"false"`
	Bind         string `name:"bind" description:"Metrics server bind address" default:"0.0.0.0"`
	Port         int    `name:"port" description:"Metrics server port" default:"9100"`
	OTLPEndpoint string `name:"otlp-endpoint" description:"OTLP tracing endpoint"`
}

// PProf configures the profiling server.
type PProf struct {
	Enabled bool   `name:"enabled" description:"Enable the pprof server" default:"false"`
	Bind    string `name:"bind" description:"PProf server bind address" default:"127.0.0.1"`
	Port    int    `name:"port" description:"PProf server port" default:"6060"`
}

// CallsignRegex is a regex for validating callsigns.
var CallsignRegex = regexp.MustCompile(`^[A-Z0-9/-]{1,6}$`)
