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
	"encoding/binary"
	"fmt"

	"github.com/USA-RedDragon/M17Host/internal/m17/m17const"
)

// The M17 CRC-16: polynomial 0x5935, initial value 0xFFFF, no reflection,
// appended big-endian. Check value for "123456789" is 0x772B.
const (
	crcPolynomial = 0x5935
	crcInitial    = 0xFFFF
)

// CRC16 computes the M17 CRC-16 over data.
func CRC16(data []byte) (uint16, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("CRC16: empty data: %w", ErrLength)
	}

	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc, nil
}

// AppendCRC16 returns data with its CRC-16 appended big-endian.
func AppendCRC16(data []byte) ([]byte, error) {
	crc, err := CRC16(data)
	if err != nil {
		return nil, err
	}
	return binary.BigEndian.AppendUint16(append([]byte(nil), data...), crc), nil
}

// CheckCRC16 verifies that the trailing two bytes of data hold the CRC-16 of
// the preceding bytes.
func CheckCRC16(data []byte) (bool, error) {
	if len(data) < m17const.CRCLengthBytes+1 {
		return false, fmt.Errorf("CheckCRC16: data too short (%d bytes): %w", len(data), ErrLength)
	}
	crc, err := CRC16(data[:len(data)-m17const.CRCLengthBytes])
	if err != nil {
		return false, err
	}
	return crc == binary.BigEndian.Uint16(data[len(data)-m17const.CRCLengthBytes:]), nil
}
