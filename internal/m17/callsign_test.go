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

package m17_test

import (
	"testing"

	"github.com/USA-RedDragon/M17Host/internal/m17"
	"github.com/stretchr/testify/assert"
)

func TestEncodeCallsign(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		callsign string
		want     []byte
	}{
		{"short", "W1AW", []byte{'W', '1', 'A', 'W', 0, 0}},
		{"full", "KC1AWV", []byte{'K', 'C', '1', 'A', 'W', 'V'}},
		{"truncated", "VERYLONGCALL", []byte{'V', 'E', 'R', 'Y', 'L', 'O'}},
		{"empty", "", []byte{0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m17.EncodeCallsign(tt.callsign))
		})
	}
}

func TestDecodeCallsign(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		field []byte
		want  string
	}{
		{"padded", []byte{'W', '1', 'A', 'W', 0, 0}, "W1AW"},
		{"full", []byte{'K', 'C', '1', 'A', 'W', 'V'}, "KC1AWV"},
		{"whitespace", []byte{' ', 'N', '0', 'A', ' ', 0}, "N0A"},
		{"non ascii dropped", []byte{'W', 0xFF, '1', 'A', 0, 0}, "W1A"},
		{"all zero", []byte{0, 0, 0, 0, 0, 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m17.DecodeCallsign(tt.field))
		})
	}
}

func TestCallsignRoundTrip(t *testing.T) {
	t.Parallel()
	for _, callsign := range []string{"A", "W1AW", "KC1AWV", "M17"} {
		assert.Equal(t, callsign, m17.DecodeCallsign(m17.EncodeCallsign(callsign)))
	}
}
