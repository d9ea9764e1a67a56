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

import "time"

// Timer is a clock-driven countdown used for mode hang times. It is
// advanced by the main loop, never by wall time, so the host's timing is
// deterministic under test.
type Timer struct {
	running   bool
	remaining time.Duration
}

// Start arms the timer for d.
func (t *Timer) Start(d time.Duration) {
	t.running = true
	t.remaining = d
}

// Stop disarms the timer.
func (t *Timer) Stop() {
	t.running = false
}

// IsRunning reports whether the timer is armed.
func (t *Timer) IsRunning() bool {
	return t.running
}

// Clock advances the timer by elapsed.
func (t *Timer) Clock(elapsed time.Duration) {
	if t.running {
		t.remaining -= elapsed
	}
}

// Expired reports whether an armed timer has run out.
func (t *Timer) Expired() bool {
	return t.running && t.remaining <= 0
}
