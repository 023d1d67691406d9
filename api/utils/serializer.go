// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"sync"

	"github.com/vechain/farm/builtin"
	"github.com/vechain/farm/co"
)

// Serializer runs every access to a farm one at a time.
type Serializer struct {
	mu      sync.Mutex
	farm    *builtin.Farm
	written co.Signal
}

func NewSerializer(f *builtin.Farm) *Serializer {
	return &Serializer{farm: f}
}

// View runs fn with exclusive access. fn must not write.
func (s *Serializer) View(fn func(f *builtin.Farm) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.farm)
}

// Call runs fn with exclusive access as one atomic farm call.
// Waiters from NewWriteWaiter are signaled when it succeeds.
func (s *Serializer) Call(fn func(f *builtin.Farm) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.farm.Call(func() error { return fn(s.farm) }); err != nil {
		return err
	}
	s.written.Signal()
	return nil
}

// Commit persists the calls made so far.
func (s *Serializer) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.farm.Commit()
}

// NewWriteWaiter returns a waiter signaled after successful calls.
func (s *Serializer) NewWriteWaiter() co.Waiter {
	return s.written.NewWaiter()
}
