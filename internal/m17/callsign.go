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

package m17

import (
	"bytes"
	"strings"

	"github.com/USA-RedDragon/M17Host/internal/m17/m17const"
)

// EncodeCallsign packs a callsign into the fixed 6-byte wire field,
// truncating to 6 ASCII characters and right-padding with zero bytes.
func EncodeCallsign(callsign string) []byte {
	field := make([]byte, m17const.CallsignLengthBytes)
	n := 0
	for i := 0; i < len(callsign) && n < m17const.CallsignLengthBytes; i++ {
		if callsign[i] > 0x7F {
			continue
		}
		field[n] = callsign[i]
		n++
	}
	return field
}

// DecodeCallsign unpacks a 6-byte wire field into a printable callsign.
// Trailing zero bytes are stripped, non-ASCII bytes are dropped, and
// surrounding whitespace is trimmed.
func DecodeCallsign(field []byte) string {
	trimmed := bytes.TrimRight(field, "\x00")
	var sb strings.Builder
	for _, b := range trimmed {
		if b <= 0x7F {
			sb.WriteByte(b)
		}
	}
	return strings.TrimSpace(sb.String())
}
