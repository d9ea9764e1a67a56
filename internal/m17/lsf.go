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
	"encoding/binary"
	"fmt"

	"github.com/USA-RedDragon/M17Host/internal/m17/m17const"
)

// LSF field offsets in the 30-byte wire form. The meta field fills the
// space between the CAN and the CRC so that the frame splits into six
// 5-byte LICH fragments exactly.
const (
	lsfDstOffset  = 0
	lsfSrcOffset  = lsfDstOffset + m17const.CallsignLengthBytes
	lsfTypeOffset = lsfSrcOffset + m17const.CallsignLengthBytes
	lsfCANOffset  = lsfTypeOffset + 1
	lsfMetaOffset = lsfCANOffset + m17const.CANLengthBytes
	lsfCRCOffset  = m17const.LSFLengthBytes - m17const.CRCLengthBytes
)

// LSF is a Link Setup Frame, the header that opens an M17 transmission.
type LSF struct {
	DstCallsign       string
	SrcCallsign       string
	CAN               uint16
	PacketType        m17const.PacketType
	DataType          m17const.DataType
	EncryptionType    m17const.EncryptionType
	EncryptionSubtype m17const.EncryptionSubType
	Meta              [m17const.MetaLengthBytes]byte
}

// Equal reports whether two LSFs carry identical fields.
func (l LSF) Equal(other LSF) bool {
	return l == other
}

// DecodeLSF unpacks an LSF from its wire form. data must hold at least
// LSFLengthBytes; only the first LSFLengthBytes are read. The CRC covers
// everything before it.
func DecodeLSF(data []byte) (LSF, error) {
	var lsf LSF
	if len(data) < m17const.LSFLengthBytes {
		return lsf, fmt.Errorf("DecodeLSF: %d bytes: %w", len(data), ErrLength)
	}
	data = data[:m17const.LSFLengthBytes]

	ok, err := CheckCRC16(data)
	if err != nil {
		return lsf, err
	}
	if !ok {
		return lsf, fmt.Errorf("DecodeLSF: %w", ErrCRC)
	}

	typeByte := data[lsfTypeOffset]
	lsf.PacketType = m17const.PacketType(typeByte & 0x01)
	lsf.DataType = m17const.DataType((typeByte >> 1) & 0x03)
	lsf.EncryptionType = m17const.EncryptionType((typeByte >> 3) & 0x03)
	lsf.EncryptionSubtype = m17const.EncryptionSubType((typeByte >> 5) & 0x03)

	if !lsf.DataType.Valid() {
		return LSF{}, fmt.Errorf("DecodeLSF: data type %#x: %w", uint8(lsf.DataType), ErrField)
	}
	if !lsf.EncryptionType.Valid() {
		return LSF{}, fmt.Errorf("DecodeLSF: encryption type %#x: %w", uint8(lsf.EncryptionType), ErrField)
	}
	if !lsf.EncryptionSubtype.Valid() {
		return LSF{}, fmt.Errorf("DecodeLSF: encryption subtype %#x: %w", uint8(lsf.EncryptionSubtype), ErrField)
	}

	lsf.DstCallsign = DecodeCallsign(data[lsfDstOffset:lsfSrcOffset])
	lsf.SrcCallsign = DecodeCallsign(data[lsfSrcOffset:lsfTypeOffset])
	lsf.CAN = binary.BigEndian.Uint16(data[lsfCANOffset : lsfCANOffset+m17const.CANLengthBytes])
	copy(lsf.Meta[:], data[lsfMetaOffset:lsfCRCOffset])

	return lsf, nil
}

// Encode packs the LSF into its 30-byte wire form, CRC included.
func (l LSF) Encode() ([]byte, error) {
	if len(l.DstCallsign) == 0 || len(l.DstCallsign) > m17const.CallsignLengthBytes {
		return nil, fmt.Errorf("LSF.Encode: destination %q: %w", l.DstCallsign, ErrCallsign)
	}
	if len(l.SrcCallsign) == 0 || len(l.SrcCallsign) > m17const.CallsignLengthBytes {
		return nil, fmt.Errorf("LSF.Encode: source %q: %w", l.SrcCallsign, ErrCallsign)
	}

	frame := make([]byte, lsfCRCOffset)
	copy(frame[lsfDstOffset:], EncodeCallsign(l.DstCallsign))
	copy(frame[lsfSrcOffset:], EncodeCallsign(l.SrcCallsign))
	frame[lsfTypeOffset] = byte(l.PacketType)&0x01 |
		(byte(l.DataType)&0x03)<<1 |
		(byte(l.EncryptionType)&0x03)<<3 |
		(byte(l.EncryptionSubtype)&0x03)<<5
	binary.BigEndian.PutUint16(frame[lsfCANOffset:], l.CAN)
	copy(frame[lsfMetaOffset:], l.Meta[:])

	return AppendCRC16(frame)
}

// HasMeta reports whether the meta field carries a nonce.
func (l LSF) HasMeta() bool {
	return l.Meta != [m17const.MetaLengthBytes]byte{}
}

// FrameKind identifies a 48-byte frame by its leading sync word.
type FrameKind int

const (
	FrameKindUnknown FrameKind = iota
	FrameKindLinkSetup
	FrameKindStream
	FrameKindEOT
)

// KindOf classifies a frame by its first two bytes.
func KindOf(data []byte) FrameKind {
	if len(data) < m17const.SyncLengthBytes {
		return FrameKindUnknown
	}
	sync := data[:m17const.SyncLengthBytes]
	switch {
	case bytes.Equal(sync, m17const.LinkSetupSync):
		return FrameKindLinkSetup
	case bytes.Equal(sync, m17const.StreamSync):
		return FrameKindStream
	case bytes.Equal(sync, m17const.EOTSync):
		return FrameKindEOT
	default:
		return FrameKindUnknown
	}
}
