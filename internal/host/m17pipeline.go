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
	"bytes"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/m17"
	"github.com/USA-RedDragon/M17Host/internal/m17/m17const"
)

// M17Pipeline glues the modem's M17 byte stream to the M17 controller and
// its network endpoint. Modem bytes arrive in ring-sized chunks; the
// pipeline reassembles them into 48-byte frames before handing them to the
// controller's single-slot queue.
type M17Pipeline struct {
	controller *m17.Controller
	network    *m17.Network
	acc        []byte
}

// NewM17Pipeline creates the pipeline. network may be nil when the M17
// network is disabled.
func NewM17Pipeline(controller *m17.Controller, network *m17.Network) *M17Pipeline {
	return &M17Pipeline{
		controller: controller,
		network:    network,
	}
}

// WriteModem accepts one chunk of modem bytes and forwards every complete
// frame. A frame the controller cannot take is dropped, not retried; the
// single-slot queue is the back-pressure point.
func (p *M17Pipeline) WriteModem(data []byte) bool {
	p.acc = append(p.acc, data...)
	for len(p.acc) >= m17const.FrameLengthBytes {
		frame := p.acc[:m17const.FrameLengthBytes]
		if !p.controller.WriteRF(frame) {
			slog.Debug("M17 controller busy, dropping RF frame")
		}
		p.acc = p.acc[m17const.FrameLengthBytes:]
	}
	return true
}

// Clock advances the controller and network timers.
func (p *M17Pipeline) Clock(elapsed time.Duration) {
	p.controller.Clock(elapsed)
	if p.network != nil {
		p.network.Clock(elapsed)
	}
}

// Process runs one scheduling quantum: drain one frame from each side and
// pump at most one inbound network datagram into the controller.
func (p *M17Pipeline) Process() {
	p.controller.ProcessRF()
	p.controller.ProcessNet()

	if p.network == nil {
		return
	}
	data := p.network.Read()
	if data == nil {
		return
	}
	if bytes.Equal(data, m17const.EOTSync) {
		data = m17.EOTFrame()
	}
	if !p.controller.WriteNet(data) {
		slog.Debug("M17 controller busy, dropping network frame")
	}
}

// Stop discards any partially accumulated frame.
func (p *M17Pipeline) Stop() {
	p.acc = nil
}
