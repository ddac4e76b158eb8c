// Package alarm provides one-shot minute-resolution alarms driven by the
// simulated world clock.
package alarm

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handle identifies a registered alarm.
type Handle uint64

// Clock is the timer facility the director schedules against. A cancelled
// alarm's callback never fires afterward.
type Clock interface {
	Set(delayMinutes int, fn func()) Handle
	Cancel(h Handle) bool
}

type entry struct {
	handle Handle
	due    int64 // absolute world minute
	fn     func()
}

// Alarms implements Clock over simulated world time. It listens to world
// clock ticks and fires due callbacks on the tick goroutine, strictly one at
// a time; two callbacks never run concurrently.
type Alarms struct {
	pending map[Handle]*entry
	next    Handle
	nowMin  int64
	started bool
	base    time.Time
	mu      sync.Mutex
	logger  *zap.Logger
}

// New creates an alarm facility. Register it as a world clock listener.
func New(logger *zap.Logger) *Alarms {
	return &Alarms{
		pending: make(map[Handle]*entry),
		logger:  logger,
	}
}

// Set registers a one-shot alarm firing once at least delayMinutes of world
// time have elapsed. Negative delays clamp to zero, which fires on the next
// tick.
func (a *Alarms) Set(delayMinutes int, fn func()) Handle {
	if delayMinutes < 0 {
		delayMinutes = 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next++
	h := a.next
	a.pending[h] = &entry{handle: h, due: a.nowMin + int64(delayMinutes), fn: fn}
	return h
}

// Cancel removes a pending alarm. Cancelling an already-fired or unknown
// handle is a no-op returning false.
func (a *Alarms) Cancel(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pending[h]; !ok {
		return false
	}
	delete(a.pending, h)
	return true
}

// CancelAll drops every pending alarm.
func (a *Alarms) CancelAll() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.pending)
	a.pending = make(map[Handle]*entry)
	return n
}

// Pending returns the number of alarms not yet fired or cancelled.
func (a *Alarms) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// OnTick implements the world clock listener. It advances the alarm clock to
// worldTime and fires every due alarm, earliest first.
func (a *Alarms) OnTick(worldTime time.Time) {
	a.mu.Lock()
	if !a.started {
		a.started = true
		a.base = worldTime
	}
	a.nowMin = int64(worldTime.Sub(a.base) / time.Minute)

	var due []*entry
	for h, e := range a.pending {
		if e.due <= a.nowMin {
			due = append(due, e)
			delete(a.pending, h)
		}
	}
	a.mu.Unlock()

	if len(due) == 0 {
		return
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].handle < due[j].handle
	})
	for _, e := range due {
		e.fn()
	}
	a.logger.Debug("alarms fired", zap.Int("count", len(due)))
}

// Advance moves the alarm clock forward by the given number of world minutes
// without a backing clock, firing due alarms. Intended for tests and manual
// drives.
func (a *Alarms) Advance(minutes int) {
	a.mu.Lock()
	if !a.started {
		a.started = true
		a.base = time.Now()
	}
	target := a.base.Add(time.Duration(a.nowMin+int64(minutes)) * time.Minute)
	a.mu.Unlock()
	a.OnTick(target)
}
