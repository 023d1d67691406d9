// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync"
)

// Goes runs go routines and waits for them.
type Goes struct {
	wg sync.WaitGroup
}

// Go runs f in a go routine.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every go routine started by Go returned.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done returns a channel closed once every go routine started by Go returned.
func (g *Goes) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.wg.Wait()
	}()
	return done
}

// Group is Goes with a shared stop channel. Routines started by Go are expected to
// return soon after the channel is closed.
type Group struct {
	goes Goes
	stop chan struct{}
	once sync.Once
}

func NewGroup() *Group {
	return &Group{stop: make(chan struct{})}
}

// Go runs f in a go routine, handing it the stop channel.
func (g *Group) Go(f func(stop <-chan struct{})) {
	g.goes.Go(func() { f(g.stop) })
}

// Stop closes the stop channel. It is safe to call more than once.
func (g *Group) Stop() {
	g.once.Do(func() { close(g.stop) })
}

// Wait blocks until every go routine returned.
func (g *Group) Wait() {
	g.goes.Wait()
}

// StopAndWait stops the group and waits for it.
func (g *Group) StopAndWait() {
	g.Stop()
	g.Wait()
}
