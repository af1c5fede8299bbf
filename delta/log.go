package delta

import "sync"

// Log is the append-only queue of deltas recorded by one document between
// two drains.
type Log struct {
	mu    sync.Mutex
	items []Delta
}

// Append adds d at the end of the log.
func (l *Log) Append(d Delta) {
	l.mu.Lock()
	l.items = append(l.items, d)
	l.mu.Unlock()
}

// Len returns the number of pending deltas.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Drain returns every pending delta in append order and empties the log.
// Draining an empty log returns nil.
func (l *Log) Drain() []Delta {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.items
	l.items = nil
	return out
}

// Reset discards every pending delta.
func (l *Log) Reset() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}
