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
	"fmt"
	"sync"

	"github.com/USA-RedDragon/M17Host/internal/m17/m17const"
)

// LICHReassembler collects the six LSF fragments spread across the first
// stream frames of a transmission and reconstructs the LSF for
// late-joining receivers. All methods are safe for concurrent use.
type LICHReassembler struct {
	mu        sync.Mutex
	fragments [m17const.NumLICHFragments][]byte
}

// NewLICHReassembler returns an empty reassembler.
func NewLICHReassembler() *LICHReassembler {
	return &LICHReassembler{}
}

// Add stores a fragment at index, overwriting any previous fragment there.
// Once all six slots are filled their concatenation is decoded; Add returns
// the reconstructed LSF on success and an error wrapping ErrFragment when
// the concatenation does not form a valid LSF.
func (r *LICHReassembler) Add(fragment []byte, index int) (*LSF, error) {
	if len(fragment) != m17const.LSFFragmentLengthBytes {
		return nil, fmt.Errorf("LICHReassembler.Add: fragment %d bytes: %w", len(fragment), ErrFragment)
	}
	if index < 0 || index >= m17const.NumLICHFragments {
		return nil, fmt.Errorf("LICHReassembler.Add: index %d: %w", index, ErrFragment)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.fragments[index] = append([]byte(nil), fragment...)

	for _, f := range r.fragments {
		if f == nil {
			return nil, nil
		}
	}

	joined := make([]byte, 0, m17const.LSFLengthBytes)
	for _, f := range r.fragments {
		joined = append(joined, f...)
	}
	lsf, err := DecodeLSF(joined)
	if err != nil {
		return nil, fmt.Errorf("LICHReassembler.Add: %w: %w", ErrFragment, err)
	}
	return &lsf, nil
}

// Reset clears all stored fragments.
func (r *LICHReassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments = [m17const.NumLICHFragments][]byte{}
}

// IsComplete reports whether all six fragments are present.
func (r *LICHReassembler) IsComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.fragments {
		if f == nil {
			return false
		}
	}
	return true
}
