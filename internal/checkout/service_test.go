package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"raffle/internal/notifications"
	"raffle/internal/payments"
	"raffle/internal/reservations"
	"raffle/internal/sales"
	"raffle/internal/shared/clock"
	"raffle/internal/tickets"
	"raffle/pkg/logger"
)

type fakeGateway struct {
	mu        sync.Mutex
	create    payments.Status
	createErr error
	statuses  []payments.Status // successive GetPayment answers, the last one repeats
	getErr    error
	requests  []*payments.PaymentRequest
	gets      int
	nextID    int
}

func (g *fakeGateway) CreatePayment(_ context.Context, req *payments.PaymentRequest) (*payments.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	p := &payments.Payment{
		ID:        fmt.Sprintf("%d", 1000+g.nextID),
		Status:    g.create,
		RawStatus: string(g.create),
	}
	if req.MethodID == payments.MethodPix {
		p.QRCode = "00020126pix"
		p.QRCodeBase64 = "iVBORw0KGgo="
	}
	return p, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*payments.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.getErr != nil {
		return nil, g.getErr
	}
	status := payments.StatusPending
	if len(g.statuses) > 0 {
		i := g.gets
		if i >= len(g.statuses) {
			i = len(g.statuses) - 1
		}
		status = g.statuses[i]
	}
	g.gets++
	return &payments.Payment{ID: id, Status: status, RawStatus: string(status)}, nil
}

func (g *fakeGateway) lastRequest() *payments.PaymentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return nil
	}
	return g.requests[len(g.requests)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*notifications.TicketEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event *notifications.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(t notifications.EventType) []*notifications.TicketEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*notifications.TicketEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type manualTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (mt *manualTimers) start(_ time.Duration, f func()) reservations.Timer {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	t := &manualTimer{f: f}
	mt.timers = append(mt.timers, t)
	return t
}

func (mt *manualTimers) fireActive() {
	mt.mu.Lock()
	var due []*manualTimer
	for _, t := range mt.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	mt.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fixture struct {
	clock     *clock.Manual
	timers    *manualTimers
	store     *tickets.Store
	scheduler *reservations.Scheduler
	gateway   *fakeGateway
	publisher *recordingPublisher
	ledger    *sales.MemoryRepository
	svc       Service
}

func newFixture(t *testing.T, pollInterval time.Duration) *fixture {
	t.Helper()

	f := &fixture{
		clock:     clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		timers:    &manualTimers{},
		gateway:   &fakeGateway{create: payments.StatusApproved},
		publisher: &recordingPublisher{},
		ledger:    sales.NewMemoryRepository(),
	}
	f.store = tickets.NewStore(200, 3, f.clock)
	f.scheduler = reservations.NewScheduler(f.store, f.clock,
		reservations.WithTimerFunc(f.timers.start),
		reservations.WithLogger(logger.NewDiscard()),
	)
	f.svc = NewService(f.store, f.scheduler, f.gateway, f.publisher, sales.NewService(f.ledger), Config{
		UnitPrice:        5,
		PayerEmailDomain: "example.com",
		PollInterval:     pollInterval,
	})
	f.scheduler.SetReleaseHook(f.svc.HandleExpired)
	t.Cleanup(f.svc.Shutdown)
	return f
}

func (f *fixture) status(t *testing.T, number string) tickets.Status {
	t.Helper()
	tk, _, ok := f.store.Get(number)
	if !ok {
		t.Fatalf("ticket %s not found", number)
	}
	return tk.Status
}

func (f *fixture) sale(t *testing.T, paymentID string) *sales.Sale {
	t.Helper()
	sale, err := f.ledger.GetByPaymentID(context.Background(), paymentID)
	if err != nil {
		t.Fatalf("sale %s not recorded: %v", paymentID, err)
	}
	return sale
}

func card(holder string, numbers ...string) CardCheckout {
	return CardCheckout{
		HolderID: holder,
		Numbers:  numbers,
		Buyer:    Buyer{Name: "Maria da Silva", Phone: "11999998888"},
		Payment:  CardPayment{Token: "tok_123", MethodID: "visa", IssuerID: "24"},
	}
}

func pix(holder string, numbers ...string) PixCheckout {
	return PixCheckout{
		HolderID: holder,
		Numbers:  numbers,
		Buyer:    Buyer{Name: "João Souza", Phone: "11988887777"},
	}
}

func TestService_ReserveNumbers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()

	if _, err := f.svc.ReserveNumbers(ctx, "h1", []string{"007", "042"}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	_, err := f.svc.ReserveNumbers(ctx, "h2", []string{"042", "099"})
	if !errors.Is(err, tickets.ErrNumbersUnavailable) {
		t.Fatalf("expected ErrNumbersUnavailable, got %v", err)
	}

	if f.status(t, "007") != tickets.StatusReserved || f.status(t, "042") != tickets.StatusReserved {
		t.Fatalf("expected 007 and 042 reserved")
	}
	if _, r, _ := f.store.Get("042"); r == nil || r.HolderID != "h1" {
		t.Fatalf("expected 042 held by h1, got %+v", r)
	}
	if f.status(t, "099") != tickets.StatusAvailable {
		t.Fatalf("expected 099 available")
	}
	if f.scheduler.Pending() != 1 {
		t.Fatalf("expected one scheduled batch, got %d", f.scheduler.Pending())
	}
}

func TestService_ProcessCardPayment(t *testing.T) {
	t.Parallel()

	t.Run("approved sells the numbers", func(t *testing.T) {
		f := newFixture(t, 0)
		ctx := context.Background()

		status, err := f.svc.ProcessCardPayment(ctx, card("h1", "010"))
		if err != nil || status != payments.StatusApproved {
			t.Fatalf("expected approved, got %s (%v)", status, err)
		}
		if f.status(t, "010") != tickets.StatusSold {
			t.Fatalf("expected 010 sold")
		}
		if _, err := f.svc.ReserveNumbers(ctx, "h2", []string{"010"}); !errors.Is(err, tickets.ErrNumbersUnavailable) {
			t.Fatalf("expected sold number to be unavailable, got %v", err)
		}
		if f.scheduler.Pending() != 0 {
			t.Fatalf("expected schedule cancelled, got %d pending", f.scheduler.Pending())
		}

		req := f.gateway.lastRequest()
		if req.Amount != 5 || req.Installments != 1 || req.IssuerID != "24" {
			t.Fatalf("unexpected payment request %+v", req)
		}
		if req.Description != "Compra de números: 010" {
			t.Fatalf("unexpected description %q", req.Description)
		}
		if req.Payer.Email != "h1@example.com" || req.Payer.IdentificationType != "CPF" || req.Payer.IdentificationNumber != "11999998888" {
			t.Fatalf("unexpected payer %+v", req.Payer)
		}
		if req.Payer.FirstName != "Maria" || req.Payer.LastName != "da Silva" {
			t.Fatalf("unexpected payer name %+v", req.Payer)
		}
		if req.IdempotencyKey == "" || req.ExternalReference == "" {
			t.Fatalf("expected idempotency key and external reference, got %+v", req)
		}

		if sold := f.publisher.ofType(notifications.EventTypeTicketsSold); len(sold) != 1 || sold[0].Numbers[0] != "010" {
			t.Fatalf("expected one TICKETS_SOLD event, got %+v", sold)
		}
		if sale := f.sale(t, "1001"); sale.Status != sales.StatusApproved || sale.Method != sales.MethodCard {
			t.Fatalf("unexpected ledger row %+v", sale)
		}
	})

	t.Run("rejected releases immediately", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusRejected

		status, err := f.svc.ProcessCardPayment(context.Background(), card("h1", "011"))
		if err != nil || status != payments.StatusRejected {
			t.Fatalf("expected rejected, got %s (%v)", status, err)
		}
		if f.status(t, "011") != tickets.StatusAvailable {
			t.Fatalf("expected 011 available")
		}
		if _, r, _ := f.store.Get("011"); r != nil {
			t.Fatalf("expected reservation cleared, got %+v", r)
		}
		if f.scheduler.Pending() != 0 {
			t.Fatalf("expected schedule cancelled")
		}
		if rel := f.publisher.ofType(notifications.EventTypeTicketsReleased); len(rel) != 1 {
			t.Fatalf("expected one TICKETS_RELEASED event, got %d", len(rel))
		}
		if sale := f.sale(t, "1001"); sale.Status != sales.StatusRejected {
			t.Fatalf("expected rejected ledger row, got %s", sale.Status)
		}
	})

	t.Run("gateway error releases and surfaces", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.createErr = fmt.Errorf("%w: connection refused", payments.ErrGateway)

		_, err := f.svc.ProcessCardPayment(context.Background(), card("h1", "020", "021"))
		if !errors.Is(err, payments.ErrGateway) {
			t.Fatalf("expected gateway error, got %v", err)
		}
		for _, n := range []string{"020", "021"} {
			if f.status(t, n) != tickets.StatusAvailable {
				t.Fatalf("expected %s released after gateway error", n)
			}
		}
		rows, _ := f.ledger.ListRecent(context.Background(), 10)
		if len(rows) != 1 || rows[0].Status != sales.StatusError {
			t.Fatalf("expected one error ledger row, got %+v", rows)
		}
	})

	t.Run("amount mismatch changes nothing", func(t *testing.T) {
		f := newFixture(t, 0)
		in := card("h1", "030", "031")
		in.Payment.Amount = 5

		if _, err := f.svc.ProcessCardPayment(context.Background(), in); !errors.Is(err, ErrAmountMismatch) {
			t.Fatalf("expected ErrAmountMismatch, got %v", err)
		}
		if f.status(t, "030") != tickets.StatusAvailable || f.gateway.lastRequest() != nil {
			t.Fatalf("expected no reservation and no gateway call")
		}
	})

	t.Run("matching amount is accepted", func(t *testing.T) {
		f := newFixture(t, 0)
		in := card("h1", "032", "033")
		in.Payment.Amount = 10

		if status, err := f.svc.ProcessCardPayment(context.Background(), in); err != nil || status != payments.StatusApproved {
			t.Fatalf("expected approved, got %s (%v)", status, err)
		}
	})

	t.Run("reuses the holder's own reservation", func(t *testing.T) {
		f := newFixture(t, 0)
		ctx := context.Background()

		if _, err := f.svc.ReserveNumbers(ctx, "h1", []string{"040"}); err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		if _, err := f.svc.ProcessCardPayment(ctx, card("h2", "040")); !errors.Is(err, tickets.ErrNumbersUnavailable) {
			t.Fatalf("expected other holder to be refused, got %v", err)
		}
		status, err := f.svc.ProcessCardPayment(ctx, card("h1", "040"))
		if err != nil || status != payments.StatusApproved {
			t.Fatalf("expected approved, got %s (%v)", status, err)
		}
		if f.status(t, "040") != tickets.StatusSold {
			t.Fatalf("expected 040 sold")
		}

		// the expiry of the first reservation must not touch the sold number
		f.clock.Advance(10 * time.Minute)
		f.timers.fireActive()
		if f.status(t, "040") != tickets.StatusSold {
			t.Fatalf("expected 040 to stay sold")
		}
	})

	t.Run("pending card is tracked", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusPending
		f.gateway.statuses = []payments.Status{payments.StatusRejected}
		ctx := context.Background()

		status, err := f.svc.ProcessCardPayment(ctx, card("h1", "050"))
		if err != nil || status != payments.StatusPending {
			t.Fatalf("expected pending, got %s (%v)", status, err)
		}
		if f.status(t, "050") != tickets.StatusReserved {
			t.Fatalf("expected 050 reserved while pending")
		}
		if ov := f.svc.Overview(ctx); ov.PendingPayments != 1 {
			t.Fatalf("expected one pending payment, got %+v", ov)
		}

		if status, _ := f.svc.PaymentStatus(ctx, "1001"); status != payments.StatusRejected {
			t.Fatalf("expected rejected, got %s", status)
		}
		if f.status(t, "050") != tickets.StatusAvailable {
			t.Fatalf("expected 050 released after rejection")
		}
	})
}

func TestService_PixPayment(t *testing.T) {
	t.Parallel()

	t.Run("pending three times then approved", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusPending
		f.gateway.statuses = []payments.Status{
			payments.StatusPending, payments.StatusPending, payments.StatusPending, payments.StatusApproved,
		}
		ctx := context.Background()

		res, err := f.svc.ProcessPixPayment(ctx, pix("h1", "012"))
		if err != nil {
			t.Fatalf("pix failed: %v", err)
		}
		if res.PaymentID == "" || res.QRCode == "" || res.QRCodeBase64 == "" {
			t.Fatalf("expected qr payload, got %+v", res)
		}
		req := f.gateway.lastRequest()
		if req.MethodID != payments.MethodPix || req.Payer.FirstName != "João" || req.Payer.LastName != "Souza" {
			t.Fatalf("unexpected pix request %+v", req)
		}

		for i := 0; i < 3; i++ {
			status, err := f.svc.PaymentStatus(ctx, res.PaymentID)
			if err != nil || status != payments.StatusPending {
				t.Fatalf("poll %d: expected pending, got %s (%v)", i, status, err)
			}
			if f.status(t, "012") != tickets.StatusReserved {
				t.Fatalf("poll %d: expected 012 reserved", i)
			}
		}

		status, err := f.svc.PaymentStatus(ctx, res.PaymentID)
		if err != nil || status != payments.StatusApproved {
			t.Fatalf("expected approved, got %s (%v)", status, err)
		}
		if f.status(t, "012") != tickets.StatusSold {
			t.Fatalf("expected 012 sold")
		}
		if ov := f.svc.Overview(ctx); ov.PendingPayments != 0 || ov.ScheduledBatches != 0 {
			t.Fatalf("expected nothing in flight, got %+v", ov)
		}
		if f.sale(t, res.PaymentID).Status != sales.StatusApproved {
			t.Fatalf("expected approved ledger row")
		}

		// later polls are answered but change nothing
		f.svc.PaymentStatus(ctx, res.PaymentID)
		if sold := f.publisher.ofType(notifications.EventTypeTicketsSold); len(sold) != 1 {
			t.Fatalf("expected exactly one TICKETS_SOLD event, got %d", len(sold))
		}
	})

	t.Run("pending poll extends the hold", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusPending
		ctx := context.Background()

		res, err := f.svc.ProcessPixPayment(ctx, pix("h1", "060"))
		if err != nil {
			t.Fatalf("pix failed: %v", err)
		}

		f.clock.Advance(4 * time.Minute)
		f.svc.PaymentStatus(ctx, res.PaymentID)
		f.clock.Advance(2 * time.Minute)
		f.timers.fireActive()

		if f.status(t, "060") != tickets.StatusReserved {
			t.Fatalf("expected 060 kept reserved by the extended hold")
		}
	})

	t.Run("late approval is a conflict", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusPending
		f.gateway.statuses = []payments.Status{payments.StatusApproved}
		ctx := context.Background()

		res, err := f.svc.ProcessPixPayment(ctx, pix("h1", "070"))
		if err != nil {
			t.Fatalf("pix failed: %v", err)
		}

		f.clock.Advance(5 * time.Minute)
		f.timers.fireActive()
		if f.status(t, "070") != tickets.StatusAvailable {
			t.Fatalf("expected 070 released by the hold")
		}
		if _, err := f.svc.ReserveNumbers(ctx, "h2", []string{"070"}); err != nil {
			t.Fatalf("expected h2 to reserve 070, got %v", err)
		}

		status, err := f.svc.PaymentStatus(ctx, res.PaymentID)
		if err != nil || status != payments.StatusApproved {
			t.Fatalf("expected approved answer, got %s (%v)", status, err)
		}
		if _, r, _ := f.store.Get("070"); r == nil || r.HolderID != "h2" {
			t.Fatalf("expected 070 still held by h2, got %+v", r)
		}
		if sale := f.sale(t, res.PaymentID); sale.Status != sales.StatusConflict {
			t.Fatalf("expected conflict ledger row, got %s", sale.Status)
		}
		conflicts := f.publisher.ofType(notifications.EventTypePaymentConflict)
		if len(conflicts) != 1 || conflicts[0].PaymentID != res.PaymentID {
			t.Fatalf("expected one PAYMENT_CONFLICT event, got %+v", conflicts)
		}
		if rel := f.publisher.ofType(notifications.EventTypeTicketsReleased); len(rel) != 1 || rel[0].Reason != "hold expired" {
			t.Fatalf("expected the expiry to publish TICKETS_RELEASED, got %+v", rel)
		}
	})

	t.Run("rejected at creation", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusRejected

		if _, err := f.svc.ProcessPixPayment(context.Background(), pix("h1", "080")); !errors.Is(err, ErrPaymentRejected) {
			t.Fatalf("expected ErrPaymentRejected, got %v", err)
		}
		if f.status(t, "080") != tickets.StatusAvailable {
			t.Fatalf("expected 080 released")
		}
	})

	t.Run("status errors keep the reservation", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusPending
		ctx := context.Background()

		res, err := f.svc.ProcessPixPayment(ctx, pix("h1", "090"))
		if err != nil {
			t.Fatalf("pix failed: %v", err)
		}
		f.gateway.getErr = fmt.Errorf("%w: timeout", payments.ErrGateway)

		if _, err := f.svc.PaymentStatus(ctx, res.PaymentID); !errors.Is(err, payments.ErrGateway) {
			t.Fatalf("expected gateway error, got %v", err)
		}
		if f.status(t, "090") != tickets.StatusReserved {
			t.Fatalf("expected 090 still reserved")
		}
	})
}

func TestService_PendingPaymentKeepsItsNumbers(t *testing.T) {
	t.Parallel()

	t.Run("second qr for the same number is refused", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusPending
		f.gateway.statuses = []payments.Status{payments.StatusApproved}
		ctx := context.Background()

		first, err := f.svc.ProcessPixPayment(ctx, pix("h1", "012"))
		if err != nil {
			t.Fatalf("pix failed: %v", err)
		}
		_, err = f.svc.ProcessPixPayment(ctx, pix("h1", "012"))
		if got := tickets.UnavailableNumbers(err); len(got) != 1 || got[0] != "012" {
			t.Fatalf("expected 012 refused while the first payment is pending, got %v", err)
		}
		if n := len(f.gateway.requests); n != 1 {
			t.Fatalf("expected a single payment created, got %d", n)
		}

		status, err := f.svc.PaymentStatus(ctx, first.PaymentID)
		if err != nil || status != payments.StatusApproved {
			t.Fatalf("expected approved, got %s (%v)", status, err)
		}
		if f.status(t, "012") != tickets.StatusSold {
			t.Fatalf("expected 012 sold to the paid qr")
		}
		if sale := f.sale(t, first.PaymentID); sale.Status != sales.StatusApproved {
			t.Fatalf("expected approved ledger row, got %s", sale.Status)
		}
		if c := f.publisher.ofType(notifications.EventTypePaymentConflict); len(c) != 0 {
			t.Fatalf("expected no conflict, got %+v", c)
		}
	})

	t.Run("card attempt cannot release a pending pix", func(t *testing.T) {
		f := newFixture(t, 0)
		f.gateway.create = payments.StatusPending
		ctx := context.Background()

		res, err := f.svc.ProcessPixPayment(ctx, pix("h1", "013"))
		if err != nil {
			t.Fatalf("pix failed: %v", err)
		}

		f.gateway.create = payments.StatusRejected
		if _, err := f.svc.ProcessCardPayment(ctx, card("h1", "013")); !errors.Is(err, tickets.ErrNumbersUnavailable) {
			t.Fatalf("expected card attempt refused, got %v", err)
		}
		if f.status(t, "013") != tickets.StatusReserved {
			t.Fatalf("expected 013 reserved while the pix is pending")
		}
		if _, r, _ := f.store.Get("013"); r == nil || r.BatchID != f.gateway.requests[0].ExternalReference {
			t.Fatalf("expected 013 still owned by the pix batch, got %+v", r)
		}

		f.gateway.statuses = []payments.Status{payments.StatusApproved}
		if status, _ := f.svc.PaymentStatus(ctx, res.PaymentID); status != payments.StatusApproved {
			t.Fatalf("expected approved, got %s", status)
		}
		if f.status(t, "013") != tickets.StatusSold {
			t.Fatalf("expected 013 sold")
		}
	})
}

func TestService_ServerPollerResolves(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5*time.Millisecond)
	f.gateway.create = payments.StatusPending
	f.gateway.statuses = []payments.Status{payments.StatusPending, payments.StatusPending, payments.StatusApproved}

	res, err := f.svc.ProcessPixPayment(context.Background(), pix("h1", "100"))
	if err != nil {
		t.Fatalf("pix failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.status(t, "100") != tickets.StatusSold {
		if time.Now().After(deadline) {
			t.Fatalf("poller did not settle payment %s", res.PaymentID)
		}
		time.Sleep(5 * time.Millisecond)
	}

	for f.svc.Overview(context.Background()).ActivePolls != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("poll task still running after settlement")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_ResetNumbers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Hour)
	f.gateway.create = payments.StatusPending
	ctx := context.Background()

	f.svc.ReserveNumbers(ctx, "h1", []string{"001", "002"})
	if _, err := f.svc.ProcessPixPayment(ctx, pix("h2", "003")); err != nil {
		t.Fatalf("pix failed: %v", err)
	}
	f.gateway.create = payments.StatusApproved
	f.svc.ProcessCardPayment(ctx, card("h3", "004"))

	f.svc.ResetNumbers(ctx)

	for _, tk := range f.svc.ListNumbers(ctx) {
		if tk.Status != tickets.StatusAvailable {
			t.Fatalf("expected %s available after reset, got %s", tk.Number, tk.Status)
		}
	}
	if n := len(f.store.Reservations()); n != 0 {
		t.Fatalf("expected no reservations, got %d", n)
	}
	ov := f.svc.Overview(ctx)
	if ov.ScheduledBatches != 0 || ov.PendingPayments != 0 || ov.ActivePolls != 0 {
		t.Fatalf("expected nothing in flight after reset, got %+v", ov)
	}
}

func TestSplitName(t *testing.T) {
	t.Parallel()

	cases := map[string][2]string{
		"":                  {"", ""},
		"Maria":             {"Maria", ""},
		"Maria da  Silva":   {"Maria", "da Silva"},
		"  Ana   Beatriz  ": {"Ana", "Beatriz"},
	}
	for in, want := range cases {
		first, last := splitName(in)
		if first != want[0] || last != want[1] {
			t.Errorf("splitName(%q) = %q, %q", in, first, last)
		}
	}
}
