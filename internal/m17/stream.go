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

// Stream frame field offsets in the 48-byte wire form.
const (
	streamFNOffset      = m17const.SyncLengthBytes
	streamLICHOffset    = streamFNOffset + m17const.FNLengthBytes
	streamPayloadOffset = streamLICHOffset + m17const.StreamLICHLengthBytes
	streamPayloadEnd    = streamPayloadOffset + m17const.PayloadLengthBytes
	streamCRCOffset     = m17const.FrameLengthBytes - m17const.CRCLengthBytes
)

// StreamFrame is one 48-byte periodic frame of an M17 stream.
type StreamFrame struct {
	FrameNumber  uint16
	Payload      []byte
	LICHFragment []byte
	IsLast       bool
}

// Equal reports whether two stream frames carry identical fields.
func (s StreamFrame) Equal(other StreamFrame) bool {
	return s.FrameNumber == other.FrameNumber &&
		s.IsLast == other.IsLast &&
		bytes.Equal(s.Payload, other.Payload) &&
		bytes.Equal(s.LICHFragment, other.LICHFragment)
}

// DecodeStreamFrame unpacks a stream frame from its wire form. The CRC
// covers everything before the trailing two bytes.
func DecodeStreamFrame(data []byte) (StreamFrame, error) {
	var frame StreamFrame
	if len(data) < m17const.MinFrameLength || len(data) > m17const.MaxFrameLength {
		return frame, fmt.Errorf("DecodeStreamFrame: %d bytes: %w", len(data), ErrLength)
	}

	ok, err := CheckCRC16(data)
	if err != nil {
		return frame, err
	}
	if !ok {
		return frame, fmt.Errorf("DecodeStreamFrame: %w", ErrCRC)
	}

	if !bytes.Equal(data[:m17const.SyncLengthBytes], m17const.StreamSync) {
		return frame, fmt.Errorf("DecodeStreamFrame: %w", ErrSync)
	}

	fn := binary.BigEndian.Uint16(data[streamFNOffset : streamFNOffset+m17const.FNLengthBytes])
	frame.IsLast = fn&m17const.LastFrameFlag != 0
	frame.FrameNumber = fn & m17const.MaxFrameNumber

	if frame.FrameNumber < m17const.NumLICHFragments && len(data) >= streamPayloadOffset+m17const.CRCLengthBytes {
		frame.LICHFragment = append([]byte(nil), data[streamLICHOffset:streamPayloadOffset]...)
	}

	end := min(len(data)-m17const.CRCLengthBytes, streamPayloadEnd)
	if end > streamPayloadOffset {
		frame.Payload = append([]byte(nil), data[streamPayloadOffset:end]...)
	}

	return frame, nil
}

// Encode packs the stream frame into its 48-byte wire form, CRC included.
func (s StreamFrame) Encode() ([]byte, error) {
	if s.FrameNumber > m17const.MaxFrameNumber {
		return nil, fmt.Errorf("StreamFrame.Encode: frame number %#x: %w", s.FrameNumber, ErrFrameNumber)
	}
	if s.LICHFragment != nil && len(s.LICHFragment) != m17const.StreamLICHLengthBytes {
		return nil, fmt.Errorf("StreamFrame.Encode: lich fragment %d bytes: %w", len(s.LICHFragment), ErrFragment)
	}
	if len(s.Payload) > m17const.PayloadLengthBytes {
		return nil, fmt.Errorf("StreamFrame.Encode: payload %d bytes: %w", len(s.Payload), ErrPayload)
	}

	frame := make([]byte, streamCRCOffset)
	copy(frame, m17const.StreamSync)
	fn := s.FrameNumber
	if s.IsLast {
		fn |= m17const.LastFrameFlag
	}
	binary.BigEndian.PutUint16(frame[streamFNOffset:], fn)
	copy(frame[streamLICHOffset:streamPayloadOffset], s.LICHFragment)
	copy(frame[streamPayloadOffset:streamPayloadEnd], s.Payload)

	return AppendCRC16(frame)
}

// EOTFrame returns a full-length frame carrying the end-of-transmission
// sync word, as delivered by the modem at the end of a stream.
func EOTFrame() []byte {
	frame := make([]byte, m17const.FrameLengthBytes)
	copy(frame, m17const.EOTSync)
	return frame
}
