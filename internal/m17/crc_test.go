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
	"errors"
	"testing"

	"github.com/USA-RedDragon/M17Host/internal/m17"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16CheckValue(t *testing.T) {
	t.Parallel()
	// The published check value for the M17 CRC-16.
	crc, err := m17.CRC16([]byte("123456789"))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x772B), crc)
}

func TestCRC16EmptyData(t *testing.T) {
	t.Parallel()
	_, err := m17.CRC16(nil)
	assert.ErrorIs(t, err, m17.ErrLength)
}

func TestCheckCRC16TooShort(t *testing.T) {
	t.Parallel()
	_, err := m17.CheckCRC16([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, m17.ErrLength)
}

func TestCRC16RoundTrip(t *testing.T) {
	t.Parallel()
	for length := 1; length <= 28; length++ {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i*31 + length*7)
		}
		withCRC, err := m17.AppendCRC16(data)
		require.NoError(t, err)
		require.Len(t, withCRC, length+2)

		ok, err := m17.CheckCRC16(withCRC)
		require.NoError(t, err)
		assert.True(t, ok, "round trip failed for length %d", length)
	}
}

func TestCRC16DetectsTampering(t *testing.T) {
	t.Parallel()
	data := []byte("M17 REFLECTOR STREAM")
	withCRC, err := m17.AppendCRC16(data)
	require.NoError(t, err)

	for i := range withCRC {
		tampered := append([]byte(nil), withCRC...)
		tampered[i] ^= 0x01
		ok, err := m17.CheckCRC16(tampered)
		if err != nil {
			continue
		}
		assert.False(t, ok, "tampering byte %d went undetected", i)
	}
}

func TestAppendCRC16Empty(t *testing.T) {
	t.Parallel()
	_, err := m17.AppendCRC16(nil)
	if !errors.Is(err, m17.ErrLength) {
		t.Errorf("Expected ErrLength, got %v", err)
	}
}
