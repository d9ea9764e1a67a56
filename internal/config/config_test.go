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

package config_test

import (
	"errors"
	"testing"

	"github.com/USA-RedDragon/M17Host/internal/config"
)

func makeValidConfig() config.Config {
	return config.Config{
		LogLevel: config.LogLevelInfo,
		Callsign: "KC1AWV",
		Modem: config.Modem{
			Protocol: config.ModemProtocolUART,
			UARTPort: "/dev/ttyAMA0",
		},
		M17: config.M17{
			Enabled:         true,
			TXHangSeconds:   5,
			ModeHangSeconds: 10,
			Network: config.M17Network{
				Enabled:        true,
				LocalAddress:   "0.0.0.0",
				LocalPort:      17011,
				GatewayAddress: "127.0.0.1",
				GatewayPort:    17010,
			},
		},
	}
}

func TestValidConfig(t *testing.T) {
	t.Parallel()
	cfg := makeValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	t.Parallel()
	cfg := makeValidConfig()
	cfg.LogLevel = "verbose"
	if !errors.Is(cfg.Validate(), config.ErrInvalidLogLevel) {
		t.Errorf("Expected ErrInvalidLogLevel, got %v", cfg.Validate())
	}
}

func TestInvalidCallsign(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		callsign string
	}{
		{"empty", ""},
		{"too long", "KC1AWVX"},
		{"lowercase", "kc1awv"},
		{"punctuation", "KC1!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := makeValidConfig()
			cfg.Callsign = tt.callsign
			if !errors.Is(cfg.Validate(), config.ErrInvalidCallsign) {
				t.Errorf("Expected ErrInvalidCallsign for %q, got %v", tt.callsign, cfg.Validate())
			}
		})
	}
}

func TestModemValidateUARTRequiresPort(t *testing.T) {
	t.Parallel()
	m := config.Modem{Protocol: config.ModemProtocolUART}
	if !errors.Is(m.Validate(), config.ErrInvalidModemUARTPort) {
		t.Errorf("Expected ErrInvalidModemUARTPort, got %v", m.Validate())
	}
}

func TestModemValidateUDPRequiresAddress(t *testing.T) {
	t.Parallel()
	m := config.Modem{Protocol: config.ModemProtocolUDP, Port: 3334}
	if !errors.Is(m.Validate(), config.ErrInvalidModemAddress) {
		t.Errorf("Expected ErrInvalidModemAddress, got %v", m.Validate())
	}
}

func TestModemValidateUDPPort(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too high", 70000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := config.Modem{Protocol: config.ModemProtocolUDP, Address: "127.0.0.1", Port: tt.port}
			if !errors.Is(m.Validate(), config.ErrInvalidModemPort) {
				t.Errorf("Expected ErrInvalidModemPort for port %d, got %v", tt.port, m.Validate())
			}
		})
	}
}

func TestModemValidateUnknownProtocol(t *testing.T) {
	t.Parallel()
	m := config.Modem{Protocol: "i2c"}
	if !errors.Is(m.Validate(), config.ErrInvalidModemProtocol) {
		t.Errorf("Expected ErrInvalidModemProtocol, got %v", m.Validate())
	}
}

func TestM17ValidateHangTimes(t *testing.T) {
	t.Parallel()
	m := config.M17{Enabled: true, TXHangSeconds: 0, ModeHangSeconds: 10}
	if !errors.Is(m.Validate(), config.ErrInvalidTXHang) {
		t.Errorf("Expected ErrInvalidTXHang, got %v", m.Validate())
	}

	m = config.M17{Enabled: true, TXHangSeconds: 5, ModeHangSeconds: 0}
	if !errors.Is(m.Validate(), config.ErrInvalidModeHang) {
		t.Errorf("Expected ErrInvalidModeHang, got %v", m.Validate())
	}
}

func TestM17ValidateDisabledSkipsChecks(t *testing.T) {
	t.Parallel()
	m := config.M17{Enabled: false}
	if err := m.Validate(); err != nil {
		t.Errorf("Expected nil error for disabled M17, got %v", err)
	}
}

func TestM17NetworkValidate(t *testing.T) {
	t.Parallel()
	m := config.M17{
		Enabled:         true,
		TXHangSeconds:   5,
		ModeHangSeconds: 10,
		Network: config.M17Network{
			Enabled:   true,
			LocalPort: 17011,
		},
	}
	if !errors.Is(m.Validate(), config.ErrInvalidNetworkHost) {
		t.Errorf("Expected ErrInvalidNetworkHost, got %v", m.Validate())
	}

	m.Network.GatewayAddress = "127.0.0.1"
	m.Network.GatewayPort = 0
	if !errors.Is(m.Validate(), config.ErrInvalidNetworkPort) {
		t.Errorf("Expected ErrInvalidNetworkPort, got %v", m.Validate())
	}
}

func TestMetricsValidate(t *testing.T) {
	t.Parallel()
	m := config.Metrics{Enabled: true, Bind: "", Port: 9100}
	if !errors.Is(m.Validate(), config.ErrInvalidMetricsBindAddress) {
		t.Errorf("Expected ErrInvalidMetricsBindAddress, got %v", m.Validate())
	}

	m = config.Metrics{Enabled: true, Bind: "0.0.0.0", Port: 0}
	if !errors.Is(m.Validate(), config.ErrInvalidMetricsPort) {
		t.Errorf("Expected ErrInvalidMetricsPort, got %v", m.Validate())
	}

	m = config.Metrics{Enabled: false}
	if err := m.Validate(); err != nil {
		t.Errorf("Expected nil error for disabled metrics, got %v", err)
	}
}

func TestPProfValidate(t *testing.T) {
	t.Parallel()
	p := config.PProf{Enabled: true, Bind: "", Port: 6060}
	if !errors.Is(p.Validate(), config.ErrInvalidPProfBindAddress) {
		t.Errorf("Expected ErrInvalidPProfBindAddress, got %v", p.Validate())
	}

	p = config.PProf{Enabled: true, Bind: "127.0.0.1", Port: -1}
	if !errors.Is(p.Validate(), config.ErrInvalidPProfPort) {
		t.Errorf("Expected ErrInvalidPProfPort, got %v", p.Validate())
	}
}
