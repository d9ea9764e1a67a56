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

package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/metrics"
	"github.com/puzpuzpuz/xsync/v4"
)

// Mode is an operating mode of the shared RF channel.
type Mode string

const (
	ModeIdle    Mode = "IDLE"
	ModeDStar   Mode = "DSTAR"
	ModeDMR     Mode = "DMR"
	ModeYSF     Mode = "YSF"
	ModeP25     Mode = "P25"
	ModeNXDN    Mode = "NXDN"
	ModeM17     Mode = "M17"
	ModePOCSAG  Mode = "POCSAG"
	ModeFM      Mode = "FM"
	ModeAX25    Mode = "AX25"
	ModeLockout Mode = "LOCKOUT"
	ModeError   Mode = "ERROR"
)

// Quantum of the cooperative main loop.
const tickInterval = time.Millisecond

// Radio is the modem surface the arbiter drives: latched status flags and
// the per-mode receive rings.
type Radio interface {
	HasLockout() bool
	HasError() bool
	Clock(elapsed time.Duration)
	ReadDStarData() []byte
	ReadDMR1Data() []byte
	ReadDMR2Data() []byte
	ReadYSFData() []byte
	ReadP25Data() []byte
	ReadNXDNData() []byte
	ReadM17Data() []byte
	ReadFMData() []byte
	ReadAX25Data() []byte
}

// Handler is one mode's pipeline: it accepts modem payloads, runs its own
// timers, and moves traffic between its controller and network.
type Handler interface {
	WriteModem(data []byte) bool
	Clock(elapsed time.Duration)
	Process()
	Stop()
}

// Host is the mode arbiter. It admits at most one mode's traffic at a time
// onto the shared channel and routes modem payloads to the registered
// per-mode handler. It is the only process-wide state in the program.
type Host struct {
	radio    Radio
	metrics  *metrics.Metrics
	handlers *xsync.Map[Mode, Handler]
	modeHang map[Mode]time.Duration

	mode      Mode
	modeTimer Timer

	// Poll order is fixed; earlier modes win simultaneous arrivals.
	pollOrder []Mode
}

// NewHost creates an arbiter in IDLE with no handlers registered.
func NewHost(radio Radio, m *metrics.Metrics) *Host {
	return &Host{
		radio:    radio,
		metrics:  m,
		handlers: xsync.NewMap[Mode, Handler](),
		modeHang: make(map[Mode]time.Duration),
		mode:     ModeIdle,
		pollOrder: []Mode{
			ModeDStar, ModeDMR, ModeYSF, ModeP25,
			ModeNXDN, ModeM17, ModeFM, ModeAX25,
		},
	}
}

// AddHandler registers a mode's pipeline and its hang time.
func (h *Host) AddHandler(mode Mode, handler Handler, hang time.Duration) {
	h.handlers.Store(mode, handler)
	h.modeHang[mode] = hang
}

// Mode returns the current operating mode.
func (h *Host) Mode() Mode {
	return h.mode
}

// Run drives the cooperative main loop until ctx is cancelled.
func (h *Host) Run(ctx context.Context) {
	slog.Info("Host running")
	last := time.Now()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Host stopping")
			h.stopHandlers()
			return
		case now := <-ticker.C:
			h.Tick(now.Sub(last))
			last = now
		}
	}
}

// Tick runs one iteration of the main loop: latch modem status, poll the
// per-mode rings in order, and advance every timer by elapsed.
func (h *Host) Tick(elapsed time.Duration) {
	h.checkStatus()
	h.pollModem()

	h.radio.Clock(elapsed)
	h.handlers.Range(func(_ Mode, handler Handler) bool {
		handler.Clock(elapsed)
		handler.Process()
		return true
	})

	h.modeTimer.Clock(elapsed)
	if h.modeTimer.Expired() {
		h.setMode(ModeIdle)
	}
}

// checkStatus mirrors the modem's lockout and error flags into the mode.
// Both are sticky until the underlying signal clears.
func (h *Host) checkStatus() {
	switch {
	case h.radio.HasLockout() && h.mode != ModeLockout:
		h.setMode(ModeLockout)
	case !h.radio.HasLockout() && h.mode == ModeLockout:
		h.setMode(ModeIdle)
	case h.radio.HasError() && h.mode != ModeError:
		h.setMode(ModeError)
	case !h.radio.HasError() && h.mode == ModeError:
		h.setMode(ModeIdle)
	}
}

func (h *Host) readModeData(mode Mode) []byte {
	switch mode {
	case ModeDStar:
		return h.radio.ReadDStarData()
	case ModeDMR:
		if data := h.radio.ReadDMR1Data(); len(data) > 0 {
			return data
		}
		return h.radio.ReadDMR2Data()
	case ModeYSF:
		return h.radio.ReadYSFData()
	case ModeP25:
		return h.radio.ReadP25Data()
	case ModeNXDN:
		return h.radio.ReadNXDNData()
	case ModeM17:
		return h.radio.ReadM17Data()
	case ModeFM:
		return h.radio.ReadFMData()
	case ModeAX25:
		return h.radio.ReadAX25Data()
	default:
		return nil
	}
}

// pollModem drains each mode's ring in the fixed order and routes payloads
// subject to the single-channel rule.
func (h *Host) pollModem() {
	for _, mode := range h.pollOrder {
		handler, ok := h.handlers.Load(mode)
		if !ok {
			continue
		}
		data := h.readModeData(mode)
		if len(data) == 0 {
			continue
		}

		switch h.mode {
		case ModeIdle:
			if handler.WriteModem(data) {
				h.setMode(mode)
				h.modeTimer.Start(h.modeHang[mode])
			}
		case mode:
			if handler.WriteModem(data) {
				h.modeTimer.Start(h.modeHang[mode])
			}
		default:
			slog.Warn("Dropping data, channel held by another mode",
				"data_mode", string(mode), "current_mode", string(h.mode))
		}
	}
}

func (h *Host) setMode(mode Mode) {
	if mode == h.mode {
		return
	}
	slog.Info("Mode change", "from", string(h.mode), "to", string(mode))
	h.metrics.RecordModeChange(string(mode))
	h.mode = mode

	if mode == ModeIdle {
		h.stopHandlers()
		h.modeTimer.Stop()
	}
}

func (h *Host) stopHandlers() {
	h.handlers.Range(func(_ Mode, handler Handler) bool {
		handler.Stop()
		return true
	})
}
