package sales

import (
	"context"
	"log/slog"

	"raffle/pkg/logger"
)

// Service records payment attempts. Ledger writes never fail a checkout: a
// storage error is logged and the sale proceeds on the in-memory inventory.
type Service interface {
	RecordAttempt(ctx context.Context, sale *Sale)
	RecordOutcome(ctx context.Context, paymentID string, status Status, detail string)
	ListRecent(ctx context.Context, limit int) ([]Sale, error)
}

type service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		log:  logger.GetDefault(),
	}
}

func (s *service) RecordAttempt(ctx context.Context, sale *Sale) {
	if err := s.repo.Create(ctx, sale); err != nil {
		s.log.WithError(err).ErrorContext(ctx, "Failed to record sale",
			slog.String("payment_id", sale.PaymentID),
			slog.String("holder_id", sale.HolderID),
			slog.String("status", string(sale.Status)),
		)
	}
}

func (s *service) RecordOutcome(ctx context.Context, paymentID string, status Status, detail string) {
	if paymentID == "" {
		return
	}
	if err := s.repo.UpdateStatus(ctx, paymentID, status, detail); err != nil {
		s.log.WithError(err).ErrorContext(ctx, "Failed to update sale",
			slog.String("payment_id", paymentID),
			slog.String("status", string(status)),
		)
	}
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]Sale, error) {
	return s.repo.ListRecent(ctx, limit)
}
