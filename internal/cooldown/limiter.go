// Package cooldown tracks the time of each submitter's last successful report.
package cooldown

import (
	"sync"
	"time"

	qrerrors "github.com/iamwavecut/quickreport/internal/errors"
)

type Decision struct {
	Allowed   bool
	Remaining time.Duration
}

// RemainingSeconds is Remaining rounded up to whole seconds.
func (d Decision) RemainingSeconds() int64 {
	return qrerrors.CeilSeconds(d.Remaining)
}

// Limiter is owned by a single report manager and passed to it explicitly.
// Entries are never evicted.
type Limiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	inFlight map[string]struct{}
}

func NewLimiter() *Limiter {
	return &Limiter{
		last:     map[string]time.Time{},
		inFlight: map[string]struct{}{},
	}
}

// TryConsume checks whether submitterID may submit at now. It does not
// record anything: call Record once the gated operation succeeded.
func (l *Limiter) TryConsume(submitterID string, now time.Time, cooldown time.Duration) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.decide(submitterID, now, cooldown)
}

func (l *Limiter) decide(submitterID string, now time.Time, cooldown time.Duration) Decision {
	last, ok := l.last[submitterID]
	if !ok {
		return Decision{Allowed: true}
	}
	elapsed := now.Sub(last)
	if elapsed >= cooldown {
		return Decision{Allowed: true}
	}
	return Decision{Remaining: cooldown - elapsed}
}

// TryReserve is TryConsume plus an in-flight marker: while a reservation is
// held every other attempt by the same submitter is denied with the full
// cooldown remaining. The holder must finish with Record or Release.
func (l *Limiter) TryReserve(submitterID string, now time.Time, cooldown time.Duration) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.inFlight[submitterID]; busy {
		return Decision{Remaining: max(cooldown, time.Second)}
	}
	d := l.decide(submitterID, now, cooldown)
	if d.Allowed {
		l.inFlight[submitterID] = struct{}{}
	}
	return d
}

// Release drops a reservation without recording a submission.
func (l *Limiter) Release(submitterID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inFlight, submitterID)
}

// Record stores now as the submitter's last successful submission and drops
// any reservation. An older timestamp never replaces a newer one.
func (l *Limiter) Record(submitterID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inFlight, submitterID)
	if last, ok := l.last[submitterID]; ok && last.After(now) {
		return
	}
	l.last[submitterID] = now
}

// Last returns the recorded timestamp for submitterID.
func (l *Limiter) Last(submitterID string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[submitterID]
	return last, ok
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.last)
}
