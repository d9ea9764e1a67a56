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

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidCallsign indicates that the provided callsign is not valid.
	ErrInvalidCallsign = errors.New("invalid callsign provided")
	// ErrInvalidModemProtocol indicates that the provided modem protocol is not valid.
	ErrInvalidModemProtocol = errors.New("invalid modem protocol provided, must be one of uart or udp")
	// ErrInvalidModemPort indicates that the provided modem UDP port is not valid.
	ErrInvalidModemPort = errors.New("invalid modem port provided")
	// ErrInvalidModemUARTPort indicates that the serial port is required for UART attachment.
	ErrInvalidModemUARTPort = errors.New("serial port is required for UART attachment")
	// ErrInvalidModemAddress indicates that the modem address is required for UDP attachment.
	ErrInvalidModemAddress = errors.New("modem address is required for UDP attachment")
	// ErrInvalidTXHang indicates that the provided transmit hang time is not valid.
	ErrInvalidTXHang = errors.New("invalid transmit hang time provided")
	// ErrInvalidModeHang indicates that the provided mode hang time is not valid.
	ErrInvalidModeHang = errors.New("invalid mode hang time provided")
	// ErrInvalidNetworkHost indicates that the provided M17 network address is not valid.
	ErrInvalidNetworkHost = errors.New("invalid M17 network address provided")
	// ErrInvalidNetworkPort indicates that the provided M17 network port is not valid.
	ErrInvalidNetworkPort = errors.New("invalid M17 network port provided")
	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPProfBindAddress indicates that the provided PProf server bind address is not valid.
	ErrInvalidPProfBindAddress = errors.New("invalid PProf server bind address provided")
	// ErrInvalidPProfPort indicates that the provided PProf server port is not valid.
	ErrInvalidPProfPort = errors.New("invalid PProf server port provided")
)

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}
	if !CallsignRegex.MatchString(c.Callsign) {
		return ErrInvalidCallsign
	}
	if err := c.Modem.Validate(); err != nil {
		return err
	}
	if err := c.M17.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.PProf.Validate()
}

// Validate checks the modem settings for errors.
func (m Modem) Validate() error {
	switch m.Protocol {
	case ModemProtocolUART:
		if m.UARTPort == "" {
			return ErrInvalidModemUARTPort
		}
	case ModemProtocolUDP:
		if m.Address == "" {
			return ErrInvalidModemAddress
		}
		if !validPort(m.Port) {
			return ErrInvalidModemPort
		}
	default:
		return ErrInvalidModemProtocol
	}
	return nil
}

// Validate checks the M17 settings for errors.
func (m M17) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.TXHangSeconds == 0 {
		return ErrInvalidTXHang
	}
	if m.ModeHangSeconds == 0 {
		return ErrInvalidModeHang
	}
	if m.Network.Enabled {
		if m.Network.GatewayAddress == "" {
			return ErrInvalidNetworkHost
		}
		if !validPort(m.Network.LocalPort) || !validPort(m.Network.GatewayPort) {
			return ErrInvalidNetworkPort
		}
	}
	return nil
}

// Validate checks the metrics settings for errors.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if !validPort(m.Port) {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate checks the pprof settings for errors.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if !validPort(p.Port) {
		return ErrInvalidPProfPort
	}
	return nil
}
