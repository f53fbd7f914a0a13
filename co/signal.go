// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync"
)

// Waiter provides the channel to wait for the next broadcast.
type Waiter interface {
	C() <-chan struct{}
}

// Signal broadcasts the occurrence of an event to every waiter, in a way that can be
// used in a select statement. The zero value is ready to use.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

func (s *Signal) current() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// Broadcast wakes all waiters.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch != nil {
		close(s.ch)
	}
	s.ch = make(chan struct{})
}

// NewWaiter returns a waiter that fires on the first broadcast after its creation.
// Once fired, C re-arms it for the broadcast after that.
func (s *Signal) NewWaiter() Waiter {
	return &waiter{s: s, ch: s.current()}
}

type waiter struct {
	s  *Signal
	ch chan struct{}
}

func (w *waiter) C() <-chan struct{} {
	ch := w.ch
	select {
	case <-ch:
		w.ch = w.s.current()
	default:
	}
	return ch
}
