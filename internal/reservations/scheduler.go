package reservations

import (
	"context"
	"sync"
	"time"

	"raffle/internal/shared/clock"
	"raffle/internal/tickets"
	"raffle/pkg/logger"
)

const (
	DefaultHoldDuration = 5 * time.Minute
	DefaultMaxHold      = 30 * time.Minute
)

// Timer is the part of *time.Timer the scheduler needs
type Timer interface {
	Stop() bool
}

// TimerFunc starts a one-shot timer that calls f after d
type TimerFunc func(d time.Duration, f func()) Timer

// ReleaseHook is called after the scheduler released expired numbers
type ReleaseHook func(batch tickets.Batch, released []string)

type entry struct {
	batch    tickets.Batch
	timer    Timer
	deadline time.Time
}

// Scheduler enforces the hold duration of reservation batches. Each batch
// gets one deferred expiry check, keyed by batch id, which finalize paths
// cancel so a sold ticket is never touched by a late callback.
type Scheduler struct {
	store     *tickets.Store
	clock     clock.Clock
	hold      time.Duration
	maxHold   time.Duration
	newTimer  TimerFunc
	onRelease ReleaseHook
	log       *logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
}

type Option func(*Scheduler)

// WithHoldDuration overrides the default hold of new reservations.
func WithHoldDuration(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.hold = d
		}
	}
}

// WithMaxHold caps how long Extend may keep a batch alive, measured from the
// original reservation. Zero disables the cap.
func WithMaxHold(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.maxHold = d
		}
	}
}

// WithTimerFunc replaces time.AfterFunc (useful for tests).
func WithTimerFunc(fn TimerFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.newTimer = fn
		}
	}
}

func WithReleaseHook(hook ReleaseHook) Option {
	return func(s *Scheduler) {
		s.onRelease = hook
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

func NewScheduler(store *tickets.Store, clk clock.Clock, opts ...Option) *Scheduler {
	if clk == nil {
		clk = clock.NewSystem()
	}
	s := &Scheduler{
		store:   store,
		clock:   clk,
		hold:    DefaultHoldDuration,
		maxHold: DefaultMaxHold,
		newTimer: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		log:     logger.GetDefault(),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HoldDuration returns the configured hold
func (s *Scheduler) HoldDuration() time.Duration {
	return s.hold
}

// SetReleaseHook installs the hook after construction
func (s *Scheduler) SetReleaseHook(hook ReleaseHook) {
	s.mu.Lock()
	s.onRelease = hook
	s.mu.Unlock()
}

// Schedule arms the expiry check of a freshly reserved batch and returns
// the time at which it fires.
func (s *Scheduler) Schedule(batch tickets.Batch) time.Time {
	return s.arm(batch, s.hold)
}

func (s *Scheduler) arm(batch tickets.Batch, d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.clock.Now().Add(d)
	if s.stopped {
		return deadline
	}
	if old, ok := s.entries[batch.ID]; ok {
		old.timer.Stop()
	}

	e := &entry{batch: batch, deadline: deadline}
	e.timer = s.newTimer(d, func() { s.fire(batch.ID, e) })
	s.entries[batch.ID] = e
	return deadline
}

func (s *Scheduler) fire(batchID string, e *entry) {
	s.mu.Lock()
	if cur, ok := s.entries[batchID]; !ok || cur != e {
		// cancelled or superseded by Extend
		s.mu.Unlock()
		return
	}
	delete(s.entries, batchID)
	hook := s.onRelease
	s.mu.Unlock()

	released := s.store.ReleaseExpired(batchID, e.batch.Numbers, s.hold)
	if len(released) > 0 {
		s.log.LogTicketsReleased(context.Background(), batchID, "hold expired", released)
		if hook != nil {
			hook(e.batch, released)
		}
	}

	// Numbers refreshed through the store after this timer was armed are
	// still held; check them again when their own hold runs out.
	held, oldest := s.store.Held(batchID, e.batch.Numbers)
	if len(held) == 0 {
		return
	}
	remaining := s.hold - s.clock.Now().Sub(oldest)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	s.arm(e.batch, remaining)
}

// Cancel drops the scheduled expiry of batchID. It reports whether an entry
// was pending.
func (s *Scheduler) Cancel(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[batchID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, batchID)
	return true
}

// Extend refreshes the hold of batchID and re-arms its timer. It refuses
// once the batch is older than the max hold, or when none of its numbers
// are still held.
func (s *Scheduler) Extend(batchID string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[batchID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	if s.maxHold > 0 && s.clock.Now().Sub(e.batch.CreatedAt) >= s.maxHold {
		return e.deadline, false
	}

	if extended := s.store.Extend(batchID, e.batch.Numbers); len(extended) == 0 {
		s.Cancel(batchID)
		return time.Time{}, false
	}
	return s.arm(e.batch, s.hold), true
}

// Deadline returns when the batch's expiry check fires
func (s *Scheduler) Deadline(batchID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[batchID]
	if !ok {
		return time.Time{}, false
	}
	return e.deadline, true
}

// Pending returns the number of armed batches
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CancelAll drops every scheduled expiry, used by the administrative reset.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	return n
}

// Stop cancels all timers; later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.CancelAll()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
