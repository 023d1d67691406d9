// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync"
)

// Waiter provides the channel to wait on.
// A true value read from it means Signal, a closed channel means Broadcast.
type Waiter interface {
	C() <-chan bool
}

// Signal is a channel based sync.Cond. Waiting goroutines can select on it.
// Signals sent while nobody waits are coalesced into one.
type Signal struct {
	l  sync.Mutex
	ch chan bool
}

func (s *Signal) chanLocked() chan bool {
	if s.ch == nil {
		s.ch = make(chan bool, 1)
	}
	return s.ch
}

// Signal wakes one waiter.
func (s *Signal) Signal() {
	s.l.Lock()
	defer s.l.Unlock()

	select {
	case s.chanLocked() <- true:
	default:
	}
}

// Broadcast wakes every waiter.
func (s *Signal) Broadcast() {
	s.l.Lock()
	defer s.l.Unlock()

	close(s.chanLocked())
	s.ch = make(chan bool, 1)
}

// NewWaiter creates a waiter. Each call of C after a broadcast follows the new channel.
func (s *Signal) NewWaiter() Waiter {
	s.l.Lock()
	ref := s.chanLocked()
	s.l.Unlock()

	return waiterFunc(func() <-chan bool {
		ch := ref

		s.l.Lock()
		ref = s.ch
		s.l.Unlock()

		return ch
	})
}

type waiterFunc func() <-chan bool

func (w waiterFunc) C() <-chan bool {
	return w()
}
