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
	"log/slog"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/m17/m17const"
	"github.com/USA-RedDragon/M17Host/internal/metrics"
)

// State is the per-side controller state.
type State int

const (
	StateNone State = iota
	StateProcess
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateProcess:
		return "PROCESS"
	default:
		return "Unknown"
	}
}

// NetGateway is the network side the controller forwards RF traffic to.
type NetGateway interface {
	Write(data []byte) error
	IsConnected() bool
}

// RFWriter is the modem side the controller forwards network traffic to.
type RFWriter interface {
	WriteM17Frame(data []byte) bool
}

// If no frame arrives for this long while either side is processing, both
// sides are forced back to idle. Guards against stuck-PTT behavior even if
// the per-side hang timers are misconfigured.
const globalTXWatchdog = 2 * time.Minute

// ControllerConfig carries the admission policy of a Controller.
type ControllerConfig struct {
	Callsign        string
	CAN             uint16
	CANFilter       bool
	SelfOnly        bool
	AllowEncryption bool
	TXHang          time.Duration
}

// side is the state of one direction of the controller. The RF and network
// sides run identical transition tables but deliberately share no state.
type side struct {
	state       State
	hang        time.Duration
	frames      uint64
	bits        uint64
	errs        uint64
	lastFrame   uint16
	lich        *LICHReassembler
	lsf         *LSF
	startedAt   time.Time
}

func (s *side) start(lsf LSF, hang time.Duration) {
	s.state = StateProcess
	s.hang = hang
	s.frames = 0
	s.bits = 0
	s.errs = 0
	s.lastFrame = 0
	s.lich = NewLICHReassembler()
	s.lsf = &lsf
	s.startedAt = time.Now()
}

func (s *side) stop() {
	s.state = StateNone
	if s.lich != nil {
		s.lich.Reset()
	}
	s.lsf = nil
}

// ber returns the bit error ratio of the current transmission in percent.
func (s *side) ber() float64 {
	if s.bits == 0 {
		return 0
	}
	return float64(s.errs) * 100.0 / float64(s.bits)
}

// Controller mediates M17 traffic between the modem and the network. The
// two directions run independent NONE/PROCESS state machines; frames enter
// through single-slot queues and are processed on the driving thread.
type Controller struct {
	config  ControllerConfig
	network NetGateway
	rf      RFWriter
	metrics *metrics.Metrics

	rfData  chan []byte
	netData chan []byte

	rfSide  side
	netSide side

	txWatchdog time.Duration
}

// NewController creates a controller. network and rf may be nil when the
// corresponding side has nowhere to forward to.
func NewController(config ControllerConfig, network NetGateway, rf RFWriter, metrics *metrics.Metrics) *Controller {
	return &Controller{
		config:  config,
		network: network,
		rf:      rf,
		metrics: metrics,
		rfData:  make(chan []byte, 1),
		netData: make(chan []byte, 1),
	}
}

// WriteRF queues one 48-byte frame from the modem. It returns false when
// the frame is not exactly one frame long or the single-slot queue is
// full; the caller must drop the frame rather than block.
func (c *Controller) WriteRF(data []byte) bool {
	return writeSlot(c.rfData, data)
}

// WriteNet queues one 48-byte frame from the network, with the same
// contract as WriteRF.
func (c *Controller) WriteNet(data []byte) bool {
	return writeSlot(c.netData, data)
}

func writeSlot(slot chan []byte, data []byte) bool {
	if len(data) != m17const.FrameLengthBytes {
		return false
	}
	frame := make([]byte, m17const.FrameLengthBytes)
	copy(frame, data)
	select {
	case slot <- frame:
		return true
	default:
		return false
	}
}

// RFState returns the state of the RF side.
func (c *Controller) RFState() State { return c.rfSide.state }

// NetState returns the state of the network side.
func (c *Controller) NetState() State { return c.netSide.state }

// RFStats returns the frame, bit, and bit-error counters of the current or
// last RF transmission.
func (c *Controller) RFStats() (frames, bits, errs uint64) {
	return c.rfSide.frames, c.rfSide.bits, c.rfSide.errs
}

// NetStats returns the frame, bit, and bit-error counters of the current
// or last network transmission.
func (c *Controller) NetStats() (frames, bits, errs uint64) {
	return c.netSide.frames, c.netSide.bits, c.netSide.errs
}

// ProcessRF handles at most one queued RF frame.
func (c *Controller) ProcessRF() {
	var data []byte
	select {
	case data = <-c.rfData:
	default:
		return
	}

	switch KindOf(data) {
	case FrameKindLinkSetup:
		c.handleRFLinkSetup(data)
	case FrameKindStream:
		c.handleRFStream(data)
	case FrameKindEOT:
		c.handleRFEOT()
	default:
		slog.Debug("Dropping RF frame with unknown sync")
	}
}

// ProcessNet handles at most one queued network frame.
func (c *Controller) ProcessNet() {
	var data []byte
	select {
	case data = <-c.netData:
	default:
		return
	}

	switch KindOf(data) {
	case FrameKindLinkSetup:
		c.handleNetLinkSetup(data)
	case FrameKindStream:
		c.handleNetStream(data)
	case FrameKindEOT:
		c.handleNetEOT()
	default:
		slog.Debug("Dropping network frame with unknown sync")
	}
}

// Clock advances the per-side hang timers and the global transmit
// watchdog by elapsed.
func (c *Controller) Clock(elapsed time.Duration) {
	if c.rfSide.state == StateProcess {
		c.rfSide.hang -= elapsed
		if c.rfSide.hang <= 0 {
			c.handleRFTimeout()
		}
	}

	if c.netSide.state == StateProcess {
		c.netSide.hang -= elapsed
		if c.netSide.hang <= 0 {
			c.handleNetTimeout()
		}
	}

	if c.txWatchdog > 0 && (c.rfSide.state == StateProcess || c.netSide.state == StateProcess) {
		c.txWatchdog -= elapsed
		if c.txWatchdog <= 0 {
			slog.Warn("M17 transmit watchdog triggered, forcing idle")
			c.rfSide.stop()
			c.netSide.stop()
		}
	}
}

// admit applies the admission policy to an LSF opening a transmission.
func (c *Controller) admit(lsf LSF, sideName string) bool {
	if c.config.SelfOnly && lsf.DstCallsign != c.config.Callsign {
		slog.Debug("Ignoring transmission for another station",
			"side", sideName, "dst", lsf.DstCallsign)
		return false
	}
	if lsf.EncryptionType != m17const.EncryptionTypeNone && !c.config.AllowEncryption {
		slog.Warn("Encrypted transmission received but encryption not allowed",
			"side", sideName, "encryption", lsf.EncryptionType.String())
		return false
	}
	if c.config.CANFilter && lsf.CAN != c.config.CAN {
		slog.Debug("Ignoring transmission on another channel access number",
			"side", sideName, "can", lsf.CAN)
		return false
	}
	return true
}

// feedLICH passes a stream frame's LICH fragment to the reassembler. The
// reconstruction is informational; failures never stall the stream, but a
// completed LSF that contradicts the one that opened the transmission is
// treated as a fragment error.
func feedLICH(s *side, frame StreamFrame, sideName string) {
	if frame.LICHFragment == nil || s.lich == nil {
		return
	}
	lsf, err := s.lich.Add(frame.LICHFragment, int(frame.FrameNumber))
	if err != nil {
		slog.Debug("Ignoring LICH fragment", "side", sideName, "error", err)
		return
	}
	if lsf != nil && s.lsf != nil && !lsf.Equal(*s.lsf) {
		slog.Warn("Reassembled LICH does not match link setup",
			"side", sideName, "src", lsf.SrcCallsign, "dst", lsf.DstCallsign)
		s.lich.Reset()
	}
}

func (c *Controller) handleRFLinkSetup(data []byte) {
	if c.rfSide.state != StateNone {
		return
	}

	lsf, err := DecodeLSF(data[m17const.SyncLengthBytes:])
	if err != nil {
		slog.Error("Failed to decode RF LSF", "error", err)
		c.metrics.RecordDecodeError("rf")
		return
	}

	if !c.admit(lsf, "rf") {
		return
	}

	c.rfSide.start(lsf, c.config.TXHang)
	c.txWatchdog = globalTXWatchdog
	c.metrics.RecordFrame("rf", "link_setup")

	slog.Info("M17 RF transmission",
		"src", lsf.SrcCallsign, "dst", lsf.DstCallsign, "can", lsf.CAN)

	c.forwardToNetwork(data)
}

func (c *Controller) handleRFStream(data []byte) {
	if c.rfSide.state != StateProcess {
		return
	}

	frame, err := DecodeStreamFrame(data)
	if err != nil {
		slog.Error("Failed to decode RF stream frame", "error", err)
		c.metrics.RecordDecodeError("rf")
		return
	}

	feedLICH(&c.rfSide, frame, "rf")

	c.rfSide.frames++
	c.rfSide.bits += uint64(len(frame.Payload)) * 8
	c.rfSide.lastFrame = frame.FrameNumber
	c.rfSide.hang = c.config.TXHang
	c.txWatchdog = globalTXWatchdog
	c.metrics.RecordFrame("rf", "stream")

	c.forwardToNetwork(data)
}

func (c *Controller) handleRFEOT() {
	if c.rfSide.state != StateProcess {
		return
	}

	slog.Info("M17 RF end of transmission",
		"frames", c.rfSide.frames,
		"duration", time.Since(c.rfSide.startedAt).Round(time.Millisecond),
		"ber", c.rfSide.ber())
	c.metrics.RecordFrame("rf", "eot")

	c.rfSide.stop()
	c.forwardToNetwork(m17const.EOTSync)
}

func (c *Controller) handleRFTimeout() {
	if c.rfSide.state != StateProcess {
		return
	}

	slog.Warn("M17 RF transmission timed out", "frames", c.rfSide.frames)
	c.metrics.RecordWatchdogTimeout("rf")

	c.rfSide.stop()
	c.forwardToNetwork(m17const.EOTSync)
}

func (c *Controller) handleNetLinkSetup(data []byte) {
	if c.netSide.state != StateNone {
		return
	}

	lsf, err := DecodeLSF(data[m17const.SyncLengthBytes:])
	if err != nil {
		slog.Error("Failed to decode network LSF", "error", err)
		c.metrics.RecordDecodeError("net")
		return
	}

	if !c.admit(lsf, "net") {
		return
	}

	c.netSide.start(lsf, c.config.TXHang)
	c.txWatchdog = globalTXWatchdog
	c.metrics.RecordFrame("net", "link_setup")

	slog.Info("M17 network transmission",
		"src", lsf.SrcCallsign, "dst", lsf.DstCallsign, "can", lsf.CAN)

	c.forwardToRF(data)
}

func (c *Controller) handleNetStream(data []byte) {
	if c.netSide.state != StateProcess {
		return
	}

	frame, err := DecodeStreamFrame(data)
	if err != nil {
		slog.Error("Failed to decode network stream frame", "error", err)
		c.metrics.RecordDecodeError("net")
		return
	}

	feedLICH(&c.netSide, frame, "net")

	c.netSide.frames++
	c.netSide.bits += uint64(len(frame.Payload)) * 8
	c.netSide.lastFrame = frame.FrameNumber
	c.netSide.hang = c.config.TXHang
	c.txWatchdog = globalTXWatchdog
	c.metrics.RecordFrame("net", "stream")

	c.forwardToRF(data)
}

func (c *Controller) handleNetEOT() {
	if c.netSide.state != StateProcess {
		return
	}

	slog.Info("M17 network end of transmission",
		"frames", c.netSide.frames,
		"duration", time.Since(c.netSide.startedAt).Round(time.Millisecond),
		"ber", c.netSide.ber())
	c.metrics.RecordFrame("net", "eot")

	// The modem signals end of transmission on its own; no EOT is
	// injected onto the RF path.
	c.netSide.stop()
}

func (c *Controller) handleNetTimeout() {
	if c.netSide.state != StateProcess {
		return
	}

	slog.Warn("M17 network transmission timed out", "frames", c.netSide.frames)
	c.metrics.RecordWatchdogTimeout("net")

	c.netSide.stop()
}

func (c *Controller) forwardToNetwork(data []byte) {
	if c.network == nil || !c.network.IsConnected() {
		return
	}
	if err := c.network.Write(data); err != nil {
		slog.Error("Failed to forward frame to M17 network", "error", err)
	}
}

func (c *Controller) forwardToRF(data []byte) {
	if c.rf == nil {
		return
	}
	if !c.rf.WriteM17Frame(data) {
		slog.Warn("Modem dropped forwarded M17 frame")
	}
}
