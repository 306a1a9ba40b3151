package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"raffle/pkg/logger"
)

// CheckFunc queries one payment and reports whether polling can stop
type CheckFunc func(ctx context.Context, paymentID string) (done bool)

type pollTask struct {
	cancel context.CancelFunc
}

// Poller runs one cancellable polling task per payment id.
type Poller struct {
	interval time.Duration
	check    CheckFunc
	log      *logger.Logger

	mu      sync.Mutex
	tasks   map[string]*pollTask
	stopped bool
	wg      sync.WaitGroup
}

// NewPoller creates a poller. A non-positive interval disables it: Watch
// becomes a no-op and payments are only resolved by client polls.
func NewPoller(interval time.Duration, check CheckFunc) *Poller {
	return &Poller{
		interval: interval,
		check:    check,
		log:      logger.GetDefault(),
		tasks:    make(map[string]*pollTask),
	}
}

// Enabled reports whether Watch starts tasks
func (p *Poller) Enabled() bool {
	return p.interval > 0
}

// Watch starts polling paymentID every interval until the check reports
// done or the task is cancelled. It returns false when nothing was started.
func (p *Poller) Watch(paymentID string) bool {
	if !p.Enabled() || paymentID == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}
	if _, ok := p.tasks[paymentID]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &pollTask{cancel: cancel}
	p.tasks[paymentID] = task

	p.wg.Add(1)
	go p.run(ctx, paymentID, task)
	return true
}

func (p *Poller) run(ctx context.Context, paymentID string, task *pollTask) {
	defer p.wg.Done()
	defer p.forget(paymentID, task)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			attempts++
			if p.check(ctx, paymentID) {
				p.log.Debug("Payment polling finished",
					slog.String("payment_id", paymentID),
					slog.Int("attempts", attempts),
				)
				return
			}
		}
	}
}

func (p *Poller) forget(paymentID string, task *pollTask) {
	p.mu.Lock()
	defer p.mu.Unlock()

	task.cancel()
	if cur, ok := p.tasks[paymentID]; ok && cur == task {
		delete(p.tasks, paymentID)
	}
}

// Cancel stops polling paymentID. Safe to call from inside the check.
func (p *Poller) Cancel(paymentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	task, ok := p.tasks[paymentID]
	if !ok {
		return false
	}
	task.cancel()
	delete(p.tasks, paymentID)
	return true
}

// CancelAll stops every task and returns how many were running
func (p *Poller) CancelAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.tasks)
	for id, task := range p.tasks {
		task.cancel()
		delete(p.tasks, id)
	}
	return n
}

// Active returns the number of running tasks
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Stop cancels every task and waits for them to return. Watch is a no-op
// afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.CancelAll()
	p.wg.Wait()
}
