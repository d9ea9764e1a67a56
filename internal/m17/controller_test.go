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
	"bytes"
	"testing"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/m17"
	"github.com/USA-RedDragon/M17Host/internal/m17/m17const"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway records everything forwarded to the network side.
type fakeGateway struct {
	connected bool
	writes    [][]byte
}

func (f *fakeGateway) Write(data []byte) error {
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeGateway) IsConnected() bool { return f.connected }

// fakeRF records everything forwarded to the modem side.
type fakeRF struct {
	writes [][]byte
}

func (f *fakeRF) WriteM17Frame(data []byte) bool {
	f.writes = append(f.writes, append([]byte(nil), data...))
	return true
}

func defaultControllerConfig() m17.ControllerConfig {
	return m17.ControllerConfig{
		Callsign:        "KC1AWV",
		CAN:             1,
		SelfOnly:        false,
		AllowEncryption: false,
		TXHang:          5 * time.Second,
	}
}

func linkSetupFrame(t *testing.T, lsf m17.LSF) []byte {
	t.Helper()
	encoded, err := lsf.Encode()
	require.NoError(t, err)
	frame := make([]byte, m17const.FrameLengthBytes)
	copy(frame, m17const.LinkSetupSync)
	copy(frame[m17const.SyncLengthBytes:], encoded)
	return frame
}

func streamFrameBytes(t *testing.T, fn uint16, isLast bool) []byte {
	t.Helper()
	frame := m17.StreamFrame{
		FrameNumber: fn,
		Payload:     makePayload(byte(fn)),
		IsLast:      isLast,
	}
	if fn < m17const.NumLICHFragments {
		frame.LICHFragment = []byte{byte(fn), 0x11, 0x22, 0x33}
	}
	encoded, err := frame.Encode()
	require.NoError(t, err)
	return encoded
}

// deliverRF pushes one frame through the RF queue.
func deliverRF(t *testing.T, controller *m17.Controller, frame []byte) {
	t.Helper()
	require.True(t, controller.WriteRF(frame))
	controller.ProcessRF()
}

// deliverNet pushes one frame through the network queue.
func deliverNet(t *testing.T, controller *m17.Controller, frame []byte) {
	t.Helper()
	require.True(t, controller.WriteNet(frame))
	controller.ProcessNet()
}

func TestControllerCleanStream(t *testing.T) {
	t.Parallel()
	gateway := &fakeGateway{connected: true}
	controller := m17.NewController(defaultControllerConfig(), gateway, nil, nil)

	assert.Equal(t, m17.StateNone, controller.RFState())

	var want [][]byte
	linkSetup := linkSetupFrame(t, makeLSF())
	want = append(want, linkSetup)
	deliverRF(t, controller, linkSetup)
	assert.Equal(t, m17.StateProcess, controller.RFState())

	for fn := uint16(0); fn < 10; fn++ {
		frame := streamFrameBytes(t, fn, false)
		want = append(want, frame)
		deliverRF(t, controller, frame)
		assert.Equal(t, m17.StateProcess, controller.RFState())
	}

	deliverRF(t, controller, m17.EOTFrame())
	assert.Equal(t, m17.StateNone, controller.RFState())

	frames, bitCount, errs := controller.RFStats()
	assert.Equal(t, uint64(10), frames)
	assert.Equal(t, uint64(10*m17const.PayloadLengthBits), bitCount)
	assert.Equal(t, uint64(0), errs)

	want = append(want, m17const.EOTSync)
	require.Len(t, gateway.writes, len(want))
	assert.Equal(t, bytes.Join(want, nil), bytes.Join(gateway.writes, nil))
}

func TestControllerBadCRCLinkSetup(t *testing.T) {
	t.Parallel()
	gateway := &fakeGateway{connected: true}
	controller := m17.NewController(defaultControllerConfig(), gateway, nil, nil)

	frame := linkSetupFrame(t, makeLSF())
	frame[m17const.SyncLengthBytes+m17const.LSFLengthBytes-1] ^= 0x01
	deliverRF(t, controller, frame)

	assert.Equal(t, m17.StateNone, controller.RFState())
	assert.Empty(t, gateway.writes)
}

func TestControllerEncryptionPolicy(t *testing.T) {
	t.Parallel()
	controller := m17.NewController(defaultControllerConfig(), nil, nil, nil)

	lsf := makeLSF()
	lsf.EncryptionType = m17const.EncryptionTypeAES
	deliverRF(t, controller, linkSetupFrame(t, lsf))

	assert.Equal(t, m17.StateNone, controller.RFState())
}

func TestControllerSelfOnly(t *testing.T) {
	t.Parallel()
	cfg := defaultControllerConfig()
	cfg.SelfOnly = true
	controller := m17.NewController(cfg, nil, nil, nil)

	// Destination ALL does not match the local callsign.
	deliverRF(t, controller, linkSetupFrame(t, makeLSF()))
	assert.Equal(t, m17.StateNone, controller.RFState())

	lsf := makeLSF()
	lsf.DstCallsign = cfg.Callsign
	deliverRF(t, controller, linkSetupFrame(t, lsf))
	assert.Equal(t, m17.StateProcess, controller.RFState())
}

func TestControllerCANFilter(t *testing.T) {
	t.Parallel()
	cfg := defaultControllerConfig()
	cfg.CANFilter = true
	cfg.CAN = 2
	controller := m17.NewController(cfg, nil, nil, nil)

	deliverRF(t, controller, linkSetupFrame(t, makeLSF()))
	assert.Equal(t, m17.StateNone, controller.RFState())

	lsf := makeLSF()
	lsf.CAN = 2
	deliverRF(t, controller, linkSetupFrame(t, lsf))
	assert.Equal(t, m17.StateProcess, controller.RFState())
}

func TestControllerUnknownSyncNeverAccepted(t *testing.T) {
	t.Parallel()
	controller := m17.NewController(defaultControllerConfig(), nil, nil, nil)

	frame := make([]byte, m17const.FrameLengthBytes)
	frame[0] = 0xDE
	frame[1] = 0xAD
	deliverRF(t, controller, frame)

	assert.Equal(t, m17.StateNone, controller.RFState())
}

func TestControllerStreamBeforeLinkSetupDropped(t *testing.T) {
	t.Parallel()
	gateway := &fakeGateway{connected: true}
	controller := m17.NewController(defaultControllerConfig(), gateway, nil, nil)

	deliverRF(t, controller, streamFrameBytes(t, 0, false))
	assert.Equal(t, m17.StateNone, controller.RFState())
	assert.Empty(t, gateway.writes)
}

func TestControllerWatchdogTimeout(t *testing.T) {
	t.Parallel()
	cfg := defaultControllerConfig()
	cfg.TXHang = time.Second
	gateway := &fakeGateway{connected: true}
	controller := m17.NewController(cfg, gateway, nil, nil)

	deliverRF(t, controller, linkSetupFrame(t, makeLSF()))
	require.Equal(t, m17.StateProcess, controller.RFState())
	gateway.writes = nil

	controller.Clock(1100 * time.Millisecond)
	assert.Equal(t, m17.StateNone, controller.RFState())
	require.Len(t, gateway.writes, 1)
	assert.Equal(t, m17const.EOTSync, gateway.writes[0])

	// Further clocking forwards nothing more.
	controller.Clock(1100 * time.Millisecond)
	assert.Len(t, gateway.writes, 1)
}

func TestControllerWatchdogRearmedByStream(t *testing.T) {
	t.Parallel()
	cfg := defaultControllerConfig()
	cfg.TXHang = time.Second
	controller := m17.NewController(cfg, nil, nil, nil)

	deliverRF(t, controller, linkSetupFrame(t, makeLSF()))
	for fn := uint16(0); fn < 5; fn++ {
		controller.Clock(800 * time.Millisecond)
		deliverRF(t, controller, streamFrameBytes(t, fn, false))
		require.Equal(t, m17.StateProcess, controller.RFState())
	}

	controller.Clock(1100 * time.Millisecond)
	assert.Equal(t, m17.StateNone, controller.RFState())
}

func TestControllerNetSide(t *testing.T) {
	t.Parallel()
	rf := &fakeRF{}
	controller := m17.NewController(defaultControllerConfig(), nil, rf, nil)

	linkSetup := linkSetupFrame(t, makeLSF())
	deliverNet(t, controller, linkSetup)
	assert.Equal(t, m17.StateProcess, controller.NetState())
	assert.Equal(t, m17.StateNone, controller.RFState())

	frame := streamFrameBytes(t, 0, false)
	deliverNet(t, controller, frame)

	// Both frames were forwarded to the modem.
	require.Len(t, rf.writes, 2)
	assert.Equal(t, linkSetup, rf.writes[0])
	assert.Equal(t, frame, rf.writes[1])

	// EOT ends the transmission without injecting anything onto the RF path.
	deliverNet(t, controller, m17.EOTFrame())
	assert.Equal(t, m17.StateNone, controller.NetState())
	assert.Len(t, rf.writes, 2)
}

func TestControllerNetTimeoutInjectsNothing(t *testing.T) {
	t.Parallel()
	cfg := defaultControllerConfig()
	cfg.TXHang = time.Second
	rf := &fakeRF{}
	controller := m17.NewController(cfg, nil, rf, nil)

	deliverNet(t, controller, linkSetupFrame(t, makeLSF()))
	require.Equal(t, m17.StateProcess, controller.NetState())
	rf.writes = nil

	controller.Clock(1100 * time.Millisecond)
	assert.Equal(t, m17.StateNone, controller.NetState())
	assert.Empty(t, rf.writes)
}

func TestControllerSingleSlotQueue(t *testing.T) {
	t.Parallel()
	controller := m17.NewController(defaultControllerConfig(), nil, nil, nil)

	frame := linkSetupFrame(t, makeLSF())
	assert.True(t, controller.WriteRF(frame))
	// The slot is full until the driving thread processes it; the newest
	// frame is the one dropped.
	assert.False(t, controller.WriteRF(frame))

	controller.ProcessRF()
	assert.True(t, controller.WriteRF(frame))
}

func TestControllerRejectsWrongLength(t *testing.T) {
	t.Parallel()
	controller := m17.NewController(defaultControllerConfig(), nil, nil, nil)

	assert.False(t, controller.WriteRF(make([]byte, 47)))
	assert.False(t, controller.WriteRF(make([]byte, 49)))
	assert.False(t, controller.WriteNet(nil))
}

func TestControllerIndependentSides(t *testing.T) {
	t.Parallel()
	controller := m17.NewController(defaultControllerConfig(), nil, nil, nil)

	deliverRF(t, controller, linkSetupFrame(t, makeLSF()))
	deliverNet(t, controller, linkSetupFrame(t, makeLSF()))
	assert.Equal(t, m17.StateProcess, controller.RFState())
	assert.Equal(t, m17.StateProcess, controller.NetState())

	deliverRF(t, controller, m17.EOTFrame())
	assert.Equal(t, m17.StateNone, controller.RFState())
	assert.Equal(t, m17.StateProcess, controller.NetState())
}

func TestControllerDisconnectedNetworkNotWritten(t *testing.T) {
	t.Parallel()
	gateway := &fakeGateway{connected: false}
	controller := m17.NewController(defaultControllerConfig(), gateway, nil, nil)

	deliverRF(t, controller, linkSetupFrame(t, makeLSF()))
	assert.Equal(t, m17.StateProcess, controller.RFState())
	assert.Empty(t, gateway.writes)
}
