// Package ratelimit throttles how often a sender can get a reply.
package ratelimit

import (
	"sync"
	"time"
)

// Decision reports the outcome of a limiter check.
type Decision int

const (
	// Allowed means the message may proceed.
	Allowed Decision = iota
	// WaitInterval means the sender wrote again too quickly.
	WaitInterval
	// CapReached means the sender exhausted the message cap.
	CapReached
)

type senderState struct {
	last  time.Time
	count int
}

// Limiter enforces two independent gates per sender: a minimum
// interval between accepted messages and a message cap. The cap
// counter is never decremented, so once a sender hits the cap they
// stay capped for the lifetime of the process.
type Limiter struct {
	mu       sync.Mutex
	senders  map[string]*senderState
	interval time.Duration
	cap      int
	now      func() time.Time
}

// NewLimiter creates a limiter with the given minimum interval and
// message cap.
func NewLimiter(interval time.Duration, messageCap int) *Limiter {
	return &Limiter{
		senders:  make(map[string]*senderState),
		interval: interval,
		cap:      messageCap,
		now:      time.Now,
	}
}

// NewLimiterWithClock is NewLimiter with an injectable clock, for tests.
func NewLimiterWithClock(interval time.Duration, messageCap int, now func() time.Time) *Limiter {
	l := NewLimiter(interval, messageCap)
	l.now = now

	return l
}

// Allow checks both gates for the sender without consuming anything.
// The interval gate is checked first, then the cap.
func (l *Limiter) Allow(sender string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, found := l.senders[sender]
	if !found {
		return Allowed
	}

	if !s.last.IsZero() && l.now().Sub(s.last) < l.interval {
		return WaitInterval
	}

	if s.count >= l.cap {
		return CapReached
	}

	return Allowed
}

// Record consumes one slot for the sender. Call it only after the turn
// completed successfully; rejected and short-circuited turns must not
// advance the counters.
func (l *Limiter) Record(sender string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, found := l.senders[sender]
	if !found {
		s = &senderState{}
		l.senders[sender] = s
	}

	s.last = l.now()
	s.count++
}
