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
	"github.com/USA-RedDragon/M17Host/internal/metrics"
)

// Default capacity of a per-mode ring buffer.
const ringSize = 3000

// ring is a bounded byte FIFO between the modem receive worker and the
// host's driving thread. Writes drop the whole payload on overflow rather
// than block; reads drain up to a caller-chosen chunk without blocking.
// Each ring has exactly one producer and one consumer.
type ring struct {
	name    string
	ch      chan byte
	metrics *metrics.Metrics
}

func newRing(name string, size int, metrics *metrics.Metrics) *ring {
	return &ring{
		name:    name,
		ch:      make(chan byte, size),
		metrics: metrics,
	}
}

// write appends data to the ring. The payload is dropped in full when it
// does not fit.
func (r *ring) write(data []byte) bool {
	if len(data) > cap(r.ch)-len(r.ch) {
		r.metrics.RecordBufferDrop(r.name)
		return false
	}
	for _, b := range data {
		select {
		case r.ch <- b:
		default:
			// Unreachable with a single producer; the space check
			// above already passed.
			r.metrics.RecordBufferDrop(r.name)
			return false
		}
	}
	return true
}

// read drains up to max bytes from the ring, returning nil when empty.
func (r *ring) read(max int) []byte {
	var out []byte
	for len(out) < max {
		select {
		case b := <-r.ch:
			out = append(out, b)
		default:
			return out
		}
	}
	return out
}

// data returns the number of buffered bytes.
func (r *ring) data() int {
	return len(r.ch)
}
