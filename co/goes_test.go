// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGoes(t *testing.T) {
	var (
		goes Goes
		n    atomic.Int32
	)
	for range 5 {
		goes.Go(func() { n.Add(1) })
	}
	<-goes.Done()
	assert.Equal(t, int32(5), n.Load())
}

func TestGroup_Stop(t *testing.T) {
	g := NewGroup()
	var ticks atomic.Int32

	g.Go(func(stop <-chan struct{}) {
		for {
			select {
			case <-stop:
				return
			default:
				ticks.Add(1)
				time.Sleep(5 * time.Millisecond)
			}
		}
	})

	time.Sleep(30 * time.Millisecond)
	g.StopAndWait()
	g.Stop()

	final := ticks.Load()
	assert.Positive(t, final)
	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, final, ticks.Load())
}
