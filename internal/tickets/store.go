package tickets

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"raffle/internal/shared/clock"

	"github.com/google/uuid"
)

// Store holds the fixed ticket inventory and its reservations in memory.
// Every mutation runs under one lock so a status check and the transition
// that depends on it can never interleave with another caller.
type Store struct {
	mu           sync.Mutex
	clock        clock.Clock
	tickets      []Ticket
	index        map[string]int
	reservations map[string]Reservation
	newBatchID   func() string
}

// NewStore creates count tickets numbered 1..count, zero-padded to width.
func NewStore(count, width int, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystem()
	}

	s := &Store{
		clock:        clk,
		tickets:      make([]Ticket, 0, count),
		index:        make(map[string]int, count),
		reservations: make(map[string]Reservation),
		newBatchID:   func() string { return uuid.New().String() },
	}

	for i := 1; i <= count; i++ {
		number := FormatNumber(i, width)
		s.index[number] = len(s.tickets)
		s.tickets = append(s.tickets, Ticket{Number: number, Status: StatusAvailable})
	}

	return s
}

// ListAll returns a snapshot of every ticket ordered by number
func (s *Store) ListAll() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

// Get returns a single ticket and its reservation, if any
func (s *Store) Get(number string) (Ticket, *Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[number]
	if !ok {
		return Ticket{}, nil, false
	}
	if r, held := s.reservations[number]; held {
		return s.tickets[i], &r, true
	}
	return s.tickets[i], nil, true
}

// Reservations returns a snapshot of the reservation table
func (s *Store) Reservations() map[string]Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Reservation, len(s.reservations))
	for k, v := range s.reservations {
		out[k] = v
	}
	return out
}

// Stats counts tickets per status
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.tickets), Reservations: len(s.reservations)}
	for _, t := range s.tickets {
		switch t.Status {
		case StatusAvailable:
			st.Available++
		case StatusReserved:
			st.Reserved++
		case StatusSold:
			st.Sold++
		}
	}
	return st
}

// TryReserve reserves every requested number for holderID or none of them.
// It fails with an *UnavailableError when any number is not available.
func (s *Store) TryReserve(numbers []string, holderID string) (Batch, error) {
	return s.reserve(numbers, holderID, false)
}

// Acquire reserves numbers for a payment attempt. It behaves like TryReserve
// but also accepts numbers that holderID reserved through TryReserve; those
// are moved into the new batch with a fresh timestamp. The new batch is
// locked: numbers bound to a payment are never taken over by a later Acquire,
// even by the same holder, until that payment settles.
func (s *Store) Acquire(numbers []string, holderID string) (Batch, error) {
	return s.reserve(numbers, holderID, true)
}

func (s *Store) reserve(numbers []string, holderID string, reuseOwn bool) (Batch, error) {
	if holderID == "" {
		return Batch{}, ErrHolderRequired
	}
	if err := s.validate(numbers); err != nil {
		return Batch{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var unavailable []string
	for _, n := range numbers {
		t := s.tickets[s.index[n]]
		if t.Status == StatusAvailable {
			continue
		}
		if reuseOwn && t.Status == StatusReserved {
			if r := s.reservations[n]; r.HolderID == holderID && !r.Locked {
				continue
			}
		}
		unavailable = append(unavailable, n)
	}
	if len(unavailable) > 0 {
		sort.Strings(unavailable)
		return Batch{}, &UnavailableError{Numbers: unavailable}
	}

	now := s.clock.Now()
	batch := Batch{
		ID:        s.newBatchID(),
		HolderID:  holderID,
		Numbers:   sortedCopy(numbers),
		CreatedAt: now,
	}
	for _, n := range batch.Numbers {
		s.tickets[s.index[n]].Status = StatusReserved
		s.reservations[n] = Reservation{
			Number:    n,
			HolderID:  holderID,
			BatchID:   batch.ID,
			CreatedAt: now,
			Locked:    reuseOwn,
		}
	}

	return batch, nil
}

// Finalize moves reserved numbers to outcome (sold or available) and clears
// their reservations. Numbers that are not reserved are skipped, which keeps
// the call idempotent and leaves sold tickets untouched. It returns the
// numbers that actually transitioned.
func (s *Store) Finalize(numbers []string, outcome Status) ([]string, error) {
	return s.finalize("", numbers, outcome)
}

// FinalizeBatch is Finalize restricted to numbers still owned by batchID.
// A number whose hold expired and was reserved again by someone else is not
// touched.
func (s *Store) FinalizeBatch(batchID string, numbers []string, outcome Status) ([]string, error) {
	if batchID == "" {
		return nil, fmt.Errorf("finalize batch: empty batch id")
	}
	return s.finalize(batchID, numbers, outcome)
}

// Release is Finalize(numbers, available)
func (s *Store) Release(numbers []string) []string {
	released, _ := s.finalize("", numbers, StatusAvailable)
	return released
}

// ReleaseBatch is FinalizeBatch(batchID, numbers, available)
func (s *Store) ReleaseBatch(batchID string, numbers []string) []string {
	if batchID == "" {
		return nil
	}
	released, _ := s.finalize(batchID, numbers, StatusAvailable)
	return released
}

func (s *Store) finalize(batchID string, numbers []string, outcome Status) ([]string, error) {
	if !outcome.IsValid() || outcome == StatusReserved {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOutcome, outcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for _, n := range numbers {
		i, ok := s.index[n]
		if !ok {
			continue
		}
		switch st := s.tickets[i].Status; {
		case st.IsTerminal():
			// sold is sticky
			continue
		case st != StatusReserved:
			continue
		}
		r := s.reservations[n]
		if batchID != "" && r.BatchID != batchID {
			continue
		}
		s.tickets[i].Status = outcome
		delete(s.reservations, n)
		changed = append(changed, n)
	}
	return changed, nil
}

// ReleaseExpired releases the numbers still held by batchID whose reservation
// is at least hold old. Numbers already finalized, re-reserved by another
// batch, or refreshed by Extend are left alone.
func (s *Store) ReleaseExpired(batchID string, numbers []string, hold time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var released []string
	for _, n := range numbers {
		r, ok := s.reservations[n]
		if !ok || r.BatchID != batchID {
			continue
		}
		if now.Sub(r.CreatedAt) < hold {
			continue
		}
		s.tickets[s.index[n]].Status = StatusAvailable
		delete(s.reservations, n)
		released = append(released, n)
	}
	return released
}

// Extend refreshes the reservation timestamp of numbers still held by batchID.
func (s *Store) Extend(batchID string, numbers []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var extended []string
	for _, n := range numbers {
		r, ok := s.reservations[n]
		if !ok || r.BatchID != batchID {
			continue
		}
		r.CreatedAt = now
		s.reservations[n] = r
		extended = append(extended, n)
	}
	return extended
}

// Held returns the numbers of the given list still reserved by batchID,
// together with the oldest reservation time among them.
func (s *Store) Held(batchID string, numbers []string) ([]string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var held []string
	var oldest time.Time
	for _, n := range numbers {
		r, ok := s.reservations[n]
		if !ok || r.BatchID != batchID {
			continue
		}
		if oldest.IsZero() || r.CreatedAt.Before(oldest) {
			oldest = r.CreatedAt
		}
		held = append(held, n)
	}
	return held, oldest
}

// ResetAll forces every ticket back to available and clears all reservations
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tickets {
		s.tickets[i].Status = StatusAvailable
	}
	s.reservations = make(map[string]Reservation)
}

// Exists reports whether number belongs to the inventory
func (s *Store) Exists(number string) bool {
	_, ok := s.index[number]
	return ok
}

// validate runs before the lock; the index never changes after NewStore.
func (s *Store) validate(numbers []string) error {
	if len(numbers) == 0 {
		return ErrNoNumbers
	}
	seen := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		if !s.Exists(n) {
			return fmt.Errorf("%w: %q", ErrUnknownNumber, n)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
