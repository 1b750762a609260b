// Package shutdown provides a single-producer, multi-consumer latch used to
// coordinate graceful shutdown across the AMQP consume loop and the HTTP
// server: whichever fires first — an OS signal or an unrecoverable task
// error — trips the latch, and every goroutine waiting on it wakes up.
package shutdown

import "sync"

// Latch is a trip-once signal. Done returns the same channel to every
// caller, so any number of goroutines can select on it without
// coordinating with each other.
type Latch struct {
	once sync.Once
	ch   chan struct{}
	err  error
	mu   sync.Mutex
}

// New returns an untripped Latch.
func New() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Trip latches shutdown. Only the first call has any effect; subsequent
// calls (even with a different err) are no-ops, matching the latch's
// trip-once semantics.
func (l *Latch) Trip(err error) {
	l.once.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.ch)
	})
}

// Done returns a channel that is closed once Trip has been called.
func (l *Latch) Done() <-chan struct{} {
	return l.ch
}

// Err returns the error Trip was called with, or nil if shutdown was
// triggered cleanly (e.g. by a signal rather than a task failure).
func (l *Latch) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Wait blocks until the latch trips.
func (l *Latch) Wait() {
	<-l.ch
}

// OnError runs fn in its own goroutine and trips the latch with fn's
// return value if it returns a non-nil error. This is how a background
// task (the AMQP consume loop, the HTTP server) is wired to bring down the
// whole process on an unrecoverable failure without that task needing to
// know about every other subsystem.
func (l *Latch) OnError(fn func() error) {
	go func() {
		if err := fn(); err != nil {
			l.Trip(err)
		}
	}()
}
