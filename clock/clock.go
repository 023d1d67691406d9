// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package clock provides the monotonically increasing counter all accrual, lock and decay logic is
// measured against. One clock unit is one second.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock reports the current checkpoint.
type Clock interface {
	Now() uint64
}

// System is the wall clock, in unix seconds.
type System struct{}

func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Manual is a clock that only moves when told to.
type Manual struct {
	now atomic.Uint64
}

// NewManual creates a manual clock starting at now.
func NewManual(now uint64) *Manual {
	m := &Manual{}
	m.now.Store(now)
	return m
}

func (m *Manual) Now() uint64 {
	return m.now.Load()
}

// Set moves the clock to now. Moving backwards is ignored, the counter is monotonic.
func (m *Manual) Set(now uint64) {
	for {
		cur := m.now.Load()
		if now <= cur || m.now.CompareAndSwap(cur, now) {
			return
		}
	}
}

// Advance moves the clock forward by d units and returns the new checkpoint.
func (m *Manual) Advance(d uint64) uint64 {
	return m.now.Add(d)
}
