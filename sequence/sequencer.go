// Package sequence orders numbered events so that turn n is processed only
// after every turn below it has completed.
package sequence

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrTurnPassed is returned by Wait for a turn that has already completed.
	ErrTurnPassed = errors.New("sequence: turn already passed")
	// ErrClosed is returned by Wait for ordered turns once Close was called.
	ErrClosed = errors.New("sequence: closed")
)

// Sequencer hands out turns in increasing order starting at 1. Turn 0 is
// never ordered. Waiters park on a channel; nothing polls.
type Sequencer struct {
	mu      sync.Mutex
	next    uint64
	closed  bool
	waiters map[uint64]chan struct{}
}

// New returns a Sequencer expecting turn 1.
func New() *Sequencer {
	return &Sequencer{next: 1, waiters: make(map[uint64]chan struct{})}
}

// Next returns the turn currently expected.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Wait blocks until turn n may proceed: every turn below n has called Done.
// Turn 0 returns immediately. A turn below the expected one returns
// ErrTurnPassed, and any ordered turn on a closed Sequencer ErrClosed.
// Cancelling ctx abandons the wait.
func (s *Sequencer) Wait(ctx context.Context, n uint64) error {
	if n == 0 {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if n < s.next {
		s.mu.Unlock()
		return ErrTurnPassed
	}
	if n == s.next {
		s.mu.Unlock()
		return nil
	}
	ch, ok := s.waiters[n]
	if !ok {
		ch = make(chan struct{})
		s.waiters[n] = ch
	}
	s.mu.Unlock()

	select {
	case <-ch:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done completes turn n and wakes the waiter for n+1. Completing a turn other
// than the expected one is a no-op.
func (s *Sequencer) Done(n uint64) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n != s.next {
		return
	}
	s.next++
	if ch, ok := s.waiters[s.next]; ok {
		close(ch)
		delete(s.waiters, s.next)
	}
}

// Reset forgets every pending turn and expects turn 1 again. Parked waiters
// are released.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, ch := range s.waiters {
		close(ch)
		delete(s.waiters, n)
	}
	s.next = 1
}

// Close releases parked waiters with ErrClosed and fails every later Wait for
// an ordered turn.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for n, ch := range s.waiters {
		close(ch)
		delete(s.waiters, n)
	}
}
