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

package modem

import (
	"encoding/binary"
	"fmt"
)

// commandFrame wraps a payload in the modem framing: start byte, 16-bit
// big-endian total length, type byte, payload.
func commandFrame(cmdType byte, payload []byte) []byte {
	total := headerLength + len(payload)
	frame := make([]byte, 0, total)
	frame = append(frame, frameStart, byte(total>>8), byte(total&0xFF), cmdType)
	return append(frame, payload...)
}

func (m *Modem) writeCommand(cmdType byte, payload []byte) error {
	frame := commandFrame(cmdType, payload)
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	sent, err := m.transport.Write(frame)
	if err != nil {
		return err
	}
	if sent != len(frame) {
		return fmt.Errorf("short write to modem: %d of %d bytes", sent, len(frame))
	}
	return nil
}

// GetVersion requests the version/capabilities response.
func (m *Modem) GetVersion() error {
	return m.writeCommand(cmdGetVersion, nil)
}

// GetStatus requests the status response.
func (m *Modem) GetStatus() error {
	return m.writeCommand(cmdGetStatus, nil)
}

// ModeFlags selects the modes the modem should demodulate.
type ModeFlags struct {
	DStar  bool
	DMR    bool
	YSF    bool
	P25    bool
	NXDN   bool
	M17    bool
	POCSAG bool
	FM     bool
	AX25   bool
}

// SetModeParams tells the modem which modes to enable. The AX.25 flag is
// only sent when the modem advertises the capability.
func (m *Modem) SetModeParams(modes ModeFlags) error {
	var flags byte
	if modes.DStar {
		flags |= 0x01
	}
	if modes.DMR {
		flags |= 0x02
	}
	if modes.YSF {
		flags |= 0x04
	}
	if modes.P25 {
		flags |= 0x08
	}
	if modes.NXDN {
		flags |= 0x10
	}
	if modes.M17 {
		flags |= 0x20
	}
	if modes.POCSAG {
		flags |= 0x40
	}
	if modes.FM {
		flags |= 0x80
	}

	payload := []byte{flags}
	if m.capabilities2.Load()&capAX25 != 0 {
		ax25 := byte(0x00)
		if modes.AX25 {
			ax25 = 0x01
		}
		payload = append(payload, ax25)
	}
	return m.writeCommand(cmdSetModes, payload)
}

// RFParams carries the RF front-end configuration.
type RFParams struct {
	RXFrequency uint32
	TXFrequency uint32
	RXOffset    int16
	TXOffset    int16
	TXDCOffset  int8
	RXDCOffset  int8
	RFLevel     float32
	POCSAGFreq  uint32
}

// SetRFParams programs frequencies, offsets, and the RF level. The POCSAG
// frequency rides along when the modem supports it.
func (m *Modem) SetRFParams(params RFParams) error {
	payload := make([]byte, 0, 17)
	payload = binary.BigEndian.AppendUint32(payload, params.RXFrequency)
	payload = binary.BigEndian.AppendUint32(payload, params.TXFrequency)
	payload = binary.BigEndian.AppendUint16(payload, uint16(params.RXOffset))
	payload = binary.BigEndian.AppendUint16(payload, uint16(params.TXOffset))
	payload = append(payload, byte(params.TXDCOffset), byte(params.RXDCOffset))
	payload = append(payload, scaleLevel(params.RFLevel))
	if m.capabilities1.Load()&capPOCSAG != 0 {
		payload = binary.BigEndian.AppendUint32(payload, params.POCSAGFreq)
	}
	return m.writeCommand(cmdSetRFParams, payload)
}

// Levels carries the audio levels for each mode, in percent.
type Levels struct {
	RX     float32
	CWID   float32
	DStar  float32
	DMR    float32
	YSF    float32
	P25    float32
	NXDN   float32
	M17    float32
	POCSAG float32
	FM     float32
	AX25   float32
}

// SetLevels programs per-mode audio levels.
func (m *Modem) SetLevels(levels Levels) error {
	payload := []byte{
		scaleLevel(levels.RX),
		scaleLevel(levels.CWID),
		scaleLevel(levels.DStar),
		scaleLevel(levels.DMR),
		scaleLevel(levels.YSF),
		scaleLevel(levels.P25),
		scaleLevel(levels.NXDN),
		scaleLevel(levels.M17),
		scaleLevel(levels.POCSAG),
		scaleLevel(levels.FM),
		scaleLevel(levels.AX25),
	}
	return m.writeCommand(cmdSetLevels, payload)
}

// scaleLevel maps a percentage to the modem's 0-255 range.
func scaleLevel(percent float32) byte {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 255
	}
	return byte(percent * 2.55)
}

// SetDMRParams programs the DMR color code.
func (m *Modem) SetDMRParams(colorCode uint8) error {
	return m.writeCommand(cmdSetDMRParams, []byte{colorCode & 0x0F})
}

// SetYSFParams programs System Fusion deviation and hang time.
func (m *Modem) SetYSFParams(lowDeviation bool, txHang uint8) error {
	ld := byte(0x00)
	if lowDeviation {
		ld = 0x01
	}
	return m.writeCommand(cmdSetYSFParams, []byte{ld, txHang})
}

// SetP25Params programs the P25 hang time.
func (m *Modem) SetP25Params(txHang uint8) error {
	return m.writeCommand(cmdSetP25Params, []byte{txHang})
}

// SetNXDNParams programs the NXDN hang time.
func (m *Modem) SetNXDNParams(txHang uint8) error {
	return m.writeCommand(cmdSetNXDNParams, []byte{txHang})
}

// SetM17Params programs the M17 hang time.
func (m *Modem) SetM17Params(txHang uint8) error {
	return m.writeCommand(cmdSetM17Params, []byte{txHang})
}

// SetAX25Params programs the AX.25 channel access parameters. It is a
// no-op on modems without the capability.
func (m *Modem) SetAX25Params(rxTwist int8, txDelay, slotTime, pPersist uint8) error {
	if m.capabilities2.Load()&capAX25 == 0 {
		return nil
	}
	return m.writeCommand(cmdSetAX25Params, []byte{byte(rxTwist), txDelay, slotTime, pPersist})
}

// FMParams carries the FM callsign announcement settings.
type FMParams struct {
	Callsign        string
	CallsignSpeed   uint8
	CallsignFreq    uint8
	CallsignTime    uint8
	CallsignHoldoff uint8
	HighLevel       float32
	LowLevel        float32
	AtStart         bool
	AtEnd           bool
	AtLatch         bool
}

// SetFMParams programs the FM callsign announcement.
func (m *Modem) SetFMParams(params FMParams) error {
	const maxFMCallsignLength = 8
	callsign := params.Callsign
	if len(callsign) > maxFMCallsignLength {
		callsign = callsign[:maxFMCallsignLength]
	}

	payload := make([]byte, 0, len(callsign)+7)
	payload = append(payload, callsign...)
	payload = append(payload,
		params.CallsignSpeed,
		params.CallsignFreq,
		params.CallsignTime,
		params.CallsignHoldoff,
		scaleLevel(params.HighLevel),
		scaleLevel(params.LowLevel),
	)

	var flags byte
	if params.AtStart {
		flags |= 0x01
	}
	if params.AtEnd {
		flags |= 0x02
	}
	if params.AtLatch {
		flags |= 0x04
	}
	payload = append(payload, flags)

	return m.writeCommand(cmdSetFMParams, payload)
}

// WriteConfig commits the configuration to the modem.
func (m *Modem) WriteConfig() error {
	return m.writeCommand(cmdWriteConfig, nil)
}

// SendCWID keys the modem's CW identifier.
func (m *Modem) SendCWID(callsign string) error {
	const maxCWIDLength = 200
	if len(callsign) > maxCWIDLength {
		callsign = callsign[:maxCWIDLength]
	}
	return m.writeCommand(cmdSendCWID, []byte(callsign))
}
