package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"raffle/internal/notifications"
	"raffle/internal/payments"
	"raffle/internal/reservations"
	"raffle/internal/sales"
	"raffle/internal/tickets"
	"raffle/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultUnitPrice        = 5.0
	DefaultPayerEmailDomain = "subzerobeer.com"

	identificationType = "CPF"
)

type Service interface {
	ListNumbers(ctx context.Context) []tickets.Ticket
	ReserveNumbers(ctx context.Context, holderID string, numbers []string) (tickets.Batch, error)
	ProcessCardPayment(ctx context.Context, in CardCheckout) (payments.Status, error)
	ProcessPixPayment(ctx context.Context, in PixCheckout) (*PixResult, error)
	PaymentStatus(ctx context.Context, paymentID string) (payments.Status, error)
	ResetNumbers(ctx context.Context)
	Overview(ctx context.Context) Overview

	// HandleExpired is the scheduler's release hook
	HandleExpired(batch tickets.Batch, released []string)
	// Shutdown stops background polling
	Shutdown()
}

type Config struct {
	UnitPrice        float64
	PayerEmailDomain string
	PollInterval     time.Duration
}

type service struct {
	store     *tickets.Store
	scheduler *reservations.Scheduler
	gateway   payments.Gateway
	publisher notifications.Publisher
	sales     sales.Service
	poller    *Poller
	cfg       Config
	log       *logger.Logger

	mu      sync.Mutex
	pending map[string]*pendingPayment
}

func NewService(
	store *tickets.Store,
	scheduler *reservations.Scheduler,
	gateway payments.Gateway,
	publisher notifications.Publisher,
	salesService sales.Service,
	cfg Config,
) Service {
	if cfg.UnitPrice <= 0 {
		cfg.UnitPrice = DefaultUnitPrice
	}
	if cfg.PayerEmailDomain == "" {
		cfg.PayerEmailDomain = DefaultPayerEmailDomain
	}
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}

	s := &service{
		store:     store,
		scheduler: scheduler,
		gateway:   gateway,
		publisher: publisher,
		sales:     salesService,
		cfg:       cfg,
		log:       logger.GetDefault(),
		pending:   make(map[string]*pendingPayment),
	}
	s.poller = NewPoller(cfg.PollInterval, s.pollOnce)
	return s
}

func (s *service) ListNumbers(ctx context.Context) []tickets.Ticket {
	return s.store.ListAll()
}

func (s *service) ReserveNumbers(ctx context.Context, holderID string, numbers []string) (tickets.Batch, error) {
	batch, err := s.store.TryReserve(numbers, holderID)
	if err != nil {
		return tickets.Batch{}, err
	}
	expiresAt := s.scheduler.Schedule(batch)
	s.log.LogTicketsReserved(ctx, batch.ID, holderID, batch.Numbers, expiresAt)
	return batch, nil
}

// acquire reserves numbers for a payment attempt. Numbers the holder already
// reserved through ReserveNumbers are taken over by the new batch; numbers
// bound to another attempt that has not settled are refused.
func (s *service) acquire(ctx context.Context, holderID string, numbers []string) (tickets.Batch, error) {
	batch, err := s.store.Acquire(numbers, holderID)
	if err != nil {
		return tickets.Batch{}, err
	}
	expiresAt := s.scheduler.Schedule(batch)
	s.log.LogTicketsReserved(ctx, batch.ID, holderID, batch.Numbers, expiresAt)
	return batch, nil
}

func (s *service) checkAmount(numbers []string, amount float64) (float64, error) {
	expected := float64(len(numbers)) * s.cfg.UnitPrice
	if amount != 0 && math.Abs(amount-expected) > 0.005 {
		return 0, fmt.Errorf("%w: got %.2f, expected %.2f", ErrAmountMismatch, amount, expected)
	}
	return expected, nil
}

func (s *service) payer(holderID string, buyer Buyer) payments.Payer {
	first, last := splitName(buyer.Name)
	return payments.Payer{
		Email:                holderID + "@" + s.cfg.PayerEmailDomain,
		FirstName:            first,
		LastName:             last,
		IdentificationType:   identificationType,
		IdentificationNumber: buyer.Phone,
	}
}

func idempotencyKey(key string) string {
	if key != "" {
		return key
	}
	return uuid.New().String()
}

func (s *service) ProcessCardPayment(ctx context.Context, in CardCheckout) (payments.Status, error) {
	if in.HolderID == "" || in.Payment.Token == "" || in.Payment.MethodID == "" {
		return "", fmt.Errorf("%w: holder, token and method are required", ErrInvalidRequest)
	}
	amount, err := s.checkAmount(in.Numbers, in.Payment.Amount)
	if err != nil {
		return "", err
	}

	batch, err := s.acquire(ctx, in.HolderID, in.Numbers)
	if err != nil {
		return "", err
	}

	installments := in.Payment.Installments
	if installments <= 0 {
		installments = 1
	}

	sale := sales.NewSale(sales.MethodCard, in.HolderID, batch.Numbers, amount)
	sale.BuyerName = in.Buyer.Name
	sale.BuyerPhone = in.Buyer.Phone

	payment, err := s.gateway.CreatePayment(ctx, &payments.PaymentRequest{
		Amount:            amount,
		Token:             in.Payment.Token,
		Description:       describeNumbers(batch.Numbers),
		MethodID:          in.Payment.MethodID,
		IssuerID:          in.Payment.IssuerID,
		Installments:      installments,
		Payer:             s.payer(in.HolderID, in.Buyer),
		ExternalReference: batch.ID,
		IdempotencyKey:    idempotencyKey(in.IdempotencyKey),
	})
	if err != nil {
		s.failAttempt(ctx, batch, sale, "create card payment", err)
		return "", fmt.Errorf("create card payment: %w", err)
	}

	sale.PaymentID = payment.ID
	s.sales.RecordAttempt(ctx, sale)

	p := &pendingPayment{paymentID: payment.ID, method: sales.MethodCard, batch: batch}
	return s.settleNew(ctx, p, payment), nil
}

func (s *service) ProcessPixPayment(ctx context.Context, in PixCheckout) (*PixResult, error) {
	if in.HolderID == "" || in.Buyer.Name == "" {
		return nil, fmt.Errorf("%w: holder and buyer name are required", ErrInvalidRequest)
	}
	amount, err := s.checkAmount(in.Numbers, in.Amount)
	if err != nil {
		return nil, err
	}

	batch, err := s.acquire(ctx, in.HolderID, in.Numbers)
	if err != nil {
		return nil, err
	}

	sale := sales.NewSale(sales.MethodPix, in.HolderID, batch.Numbers, amount)
	sale.BuyerName = in.Buyer.Name
	sale.BuyerPhone = in.Buyer.Phone

	payment, err := s.gateway.CreatePayment(ctx, &payments.PaymentRequest{
		Amount:            amount,
		Description:       describeNumbers(batch.Numbers),
		MethodID:          payments.MethodPix,
		Payer:             s.payer(in.HolderID, in.Buyer),
		ExternalReference: batch.ID,
		IdempotencyKey:    idempotencyKey(in.IdempotencyKey),
	})
	if err != nil {
		s.failAttempt(ctx, batch, sale, "create pix payment", err)
		return nil, fmt.Errorf("create pix payment: %w", err)
	}

	sale.PaymentID = payment.ID
	s.sales.RecordAttempt(ctx, sale)

	p := &pendingPayment{paymentID: payment.ID, method: sales.MethodPix, batch: batch}
	if status := s.settleNew(ctx, p, payment); status == payments.StatusRejected {
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, payment.StatusDetail)
	}

	return &PixResult{
		PaymentID:    payment.ID,
		Status:       payment.Status,
		QRCode:       payment.QRCode,
		QRCodeBase64: payment.QRCodeBase64,
	}, nil
}

// failAttempt releases the numbers of an attempt the processor never took
func (s *service) failAttempt(ctx context.Context, batch tickets.Batch, sale *sales.Sale, op string, err error) {
	s.log.LogGatewayError(ctx, op, err)
	s.release(ctx, batch, "payment failed")

	sale.Status = sales.StatusError
	sale.Detail = err.Error()
	s.sales.RecordAttempt(ctx, sale)
}

// settleNew applies the first answer for a freshly created payment. Pending
// payments are tracked until a poll resolves them.
func (s *service) settleNew(ctx context.Context, p *pendingPayment, payment *payments.Payment) payments.Status {
	if payment.Status == payments.StatusPending {
		s.mu.Lock()
		s.pending[p.paymentID] = p
		s.mu.Unlock()
		s.poller.Watch(p.paymentID)
		return payments.StatusPending
	}
	s.settle(ctx, p, payment)
	return payment.Status
}

// PaymentStatus asks the processor for the current status of paymentID and,
// when the payment is tracked here, applies it to the reserved numbers.
func (s *service) PaymentStatus(ctx context.Context, paymentID string) (payments.Status, error) {
	if paymentID == "" {
		return "", payments.ErrMissingPaymentID
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		s.log.LogGatewayError(ctx, "get payment", err)
		return "", fmt.Errorf("get payment %s: %w", paymentID, err)
	}

	s.resolve(ctx, paymentID, payment)
	return payment.Status, nil
}

// resolve is the single path from a polled status to the inventory. Client
// polls and the server poller may race; only the caller that removes the
// entry from the pending table settles it.
func (s *service) resolve(ctx context.Context, paymentID string, payment *payments.Payment) {
	s.mu.Lock()
	p, ok := s.pending[paymentID]
	if ok && payment.Status.IsFinal() {
		delete(s.pending, paymentID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	if !payment.Status.IsFinal() {
		if _, extended := s.scheduler.Extend(p.batch.ID); !extended {
			s.log.Debug("Hold not extended for pending payment",
				slog.String("payment_id", paymentID),
				slog.String("batch_id", p.batch.ID),
			)
		}
		return
	}

	// the poll task's context dies with Cancel; settling must still complete
	s.poller.Cancel(paymentID)
	s.settle(context.WithoutCancel(ctx), p, payment)
}

func (s *service) settle(ctx context.Context, p *pendingPayment, payment *payments.Payment) {
	if payment.Status == payments.StatusApproved {
		s.approve(ctx, p, payment)
		return
	}

	s.release(ctx, p.batch, "payment rejected")
	s.sales.RecordOutcome(ctx, p.paymentID, salesStatus(payment.Status), payment.StatusDetail)
}

// approve sells the numbers still held by the payment's batch. Numbers whose
// hold was already lost are never taken back; they are reported as a
// conflict for manual reconciliation.
func (s *service) approve(ctx context.Context, p *pendingPayment, payment *payments.Payment) {
	sold, err := s.store.FinalizeBatch(p.batch.ID, p.batch.Numbers, tickets.StatusSold)
	s.scheduler.Cancel(p.batch.ID)
	if err != nil {
		s.log.WithError(err).ErrorContext(ctx, "Failed to finalize sale", slog.String("payment_id", p.paymentID))
	}

	if len(sold) > 0 {
		s.log.LogTicketsSold(ctx, p.paymentID, p.batch.HolderID, sold)
		s.publish(ctx, notifications.NewEventBuilder(notifications.EventTypeTicketsSold).
			WithNumbers(sold).
			WithHolder(p.batch.HolderID).
			WithBatch(p.batch.ID).
			WithPayment(p.paymentID, string(p.method)).
			Build())
	}

	lost := missing(p.batch.Numbers, sold)
	if len(lost) == 0 {
		s.sales.RecordOutcome(ctx, p.paymentID, sales.StatusApproved, payment.StatusDetail)
		return
	}

	s.log.LogPaymentConflict(ctx, p.paymentID, p.batch.HolderID, lost)
	s.publish(ctx, notifications.NewEventBuilder(notifications.EventTypePaymentConflict).
		WithNumbers(lost).
		WithHolder(p.batch.HolderID).
		WithBatch(p.batch.ID).
		WithPayment(p.paymentID, string(p.method)).
		WithReason("approved after hold was released").
		Build())
	s.sales.RecordOutcome(ctx, p.paymentID, sales.StatusConflict,
		"approved after hold was released: "+sales.JoinNumbers(lost))
}

func (s *service) release(ctx context.Context, batch tickets.Batch, reason string) {
	released := s.store.ReleaseBatch(batch.ID, batch.Numbers)
	s.scheduler.Cancel(batch.ID)
	if len(released) == 0 {
		return
	}
	s.log.LogTicketsReleased(ctx, batch.ID, reason, released)
	s.publishReleased(ctx, batch, released, reason)
}

func (s *service) HandleExpired(batch tickets.Batch, released []string) {
	s.publishReleased(context.Background(), batch, released, "hold expired")
}

func (s *service) publishReleased(ctx context.Context, batch tickets.Batch, released []string, reason string) {
	s.publish(ctx, notifications.NewEventBuilder(notifications.EventTypeTicketsReleased).
		WithNumbers(released).
		WithHolder(batch.HolderID).
		WithBatch(batch.ID).
		WithReason(reason).
		Build())
}

// publish never fails the caller; the inventory is already updated
func (s *service) publish(ctx context.Context, event *notifications.TicketEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).ErrorContext(ctx, "Failed to publish ticket event",
			slog.String("event_type", string(event.Type)),
			slog.String("batch_id", event.BatchID),
		)
	}
}

func (s *service) pollOnce(ctx context.Context, paymentID string) bool {
	if _, err := s.PaymentStatus(ctx, paymentID); err != nil {
		return ctx.Err() != nil
	}
	return !s.tracked(paymentID)
}

func (s *service) tracked(paymentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[paymentID]
	return ok
}

func (s *service) ResetNumbers(ctx context.Context) {
	s.store.ResetAll()
	timers := s.scheduler.CancelAll()
	polls := s.poller.CancelAll()

	s.mu.Lock()
	s.pending = make(map[string]*pendingPayment)
	s.mu.Unlock()

	s.log.WarnContext(ctx, "Ticket inventory reset",
		slog.Int("cancelled_timers", timers),
		slog.Int("cancelled_polls", polls),
	)
}

func (s *service) Overview(ctx context.Context) Overview {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()

	return Overview{
		Tickets:          s.store.Stats(),
		ScheduledBatches: s.scheduler.Pending(),
		PendingPayments:  pending,
		ActivePolls:      s.poller.Active(),
	}
}

func (s *service) Shutdown() {
	s.poller.Stop()
}

// missing returns the entries of all that are not in got
func missing(all, got []string) []string {
	seen := make(map[string]struct{}, len(got))
	for _, n := range got {
		seen[n] = struct{}{}
	}
	var out []string
	for _, n := range all {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
