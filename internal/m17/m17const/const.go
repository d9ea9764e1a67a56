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

package m17const

// Frame geometry.
const (
	FrameLengthBits  = 384
	FrameLengthBytes = FrameLengthBits / 8

	SyncLengthBits  = 16
	SyncLengthBytes = SyncLengthBits / 8

	LSFLengthBits  = 240
	LSFLengthBytes = LSFLengthBits / 8

	// The LSF is spread over six equal fragments in the LICH.
	NumLICHFragments       = 6
	LSFFragmentLengthBits  = LSFLengthBits / NumLICHFragments
	LSFFragmentLengthBytes = LSFFragmentLengthBits / 8

	// Width of the LICH fragment field inside a stream frame.
	StreamLICHLengthBytes = 4

	PayloadLengthBits  = 128
	PayloadLengthBytes = PayloadLengthBits / 8

	FNLengthBytes  = 2
	CRCLengthBytes = 2

	MetaLengthBytes = LSFLengthBytes - CRCLengthBytes - 2*CallsignLengthBytes - 1 - CANLengthBytes

	CallsignLengthBytes = 6
	CANLengthBytes      = 2

	MinFrameLength = SyncLengthBytes + 4
	MaxFrameLength = FrameLengthBytes

	// A frame number with the MSB set marks the final frame of a stream.
	LastFrameFlag  = 0x8000
	MaxFrameNumber = 0x7FFF
)

// Sync words.
var (
	LinkSetupSync = []byte{0x55, 0xF7}
	StreamSync    = []byte{0xFF, 0x5D}
	EOTSync       = []byte{0x55, 0x5D}
)

// Codec2 silence frames.
var (
	Silence3200 = []byte{0x01, 0x00, 0x09, 0x43, 0x9C, 0xE4, 0x21, 0x08}
	Silence1600 = []byte{0x0C, 0x41, 0x09, 0x03, 0x0C, 0x41, 0x09, 0x03}
)

// PacketType selects between packet and stream operation.
type PacketType uint8

const (
	PacketTypePacket PacketType = 0x00
	PacketTypeStream PacketType = 0x01
)

func (p PacketType) String() string {
	switch p {
	case PacketTypePacket:
		return "Packet"
	case PacketTypeStream:
		return "Stream"
	default:
		return "Unknown"
	}
}

// DataType describes the payload carried by a transmission.
type DataType uint8

const (
	DataTypeData      DataType = 0x01
	DataTypeVoice     DataType = 0x02
	DataTypeVoiceData DataType = 0x03
)

// Valid reports whether the value is one of the defined data types.
func (d DataType) Valid() bool {
	return d >= DataTypeData && d <= DataTypeVoiceData
}

func (d DataType) String() string {
	switch d {
	case DataTypeData:
		return "Data"
	case DataTypeVoice:
		return "Voice"
	case DataTypeVoiceData:
		return "Voice+Data"
	default:
		return "Unknown"
	}
}

// EncryptionType describes the encryption scheme of a transmission.
type EncryptionType uint8

const (
	EncryptionTypeNone     EncryptionType = 0x00
	EncryptionTypeAES      EncryptionType = 0x01
	EncryptionTypeScramble EncryptionType = 0x02
)

// Valid reports whether the value is one of the defined encryption types.
func (e EncryptionType) Valid() bool {
	return e <= EncryptionTypeScramble
}

func (e EncryptionType) String() string {
	switch e {
	case EncryptionTypeNone:
		return "None"
	case EncryptionTypeAES:
		return "AES"
	case EncryptionTypeScramble:
		return "Scramble"
	default:
		return "Unknown"
	}
}

// EncryptionSubType qualifies the meta field contents.
type EncryptionSubType uint8

const (
	EncryptionSubTypeText      EncryptionSubType = 0x00
	EncryptionSubTypeGPS       EncryptionSubType = 0x01
	EncryptionSubTypeCallsigns EncryptionSubType = 0x02
)

// Valid reports whether the value is one of the defined subtypes.
func (e EncryptionSubType) Valid() bool {
	return e <= EncryptionSubTypeCallsigns
}

func (e EncryptionSubType) String() string {
	switch e {
	case EncryptionSubTypeText:
		return "Text"
	case EncryptionSubTypeGPS:
		return "GPS"
	case EncryptionSubTypeCallsigns:
		return "Callsigns"
	default:
		return "Unknown"
	}
}
