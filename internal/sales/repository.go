package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

var ErrSaleNotFound = errors.New("sale not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Repository interface {
	Create(ctx context.Context, sale *Sale) error
	UpdateStatus(ctx context.Context, paymentID string, status Status, detail string) error
	GetByPaymentID(ctx context.Context, paymentID string) (*Sale, error)
	ListRecent(ctx context.Context, limit int) ([]Sale, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sale *Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) UpdateStatus(ctx context.Context, paymentID string, status Status, detail string) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid sale status: %s", status)
	}

	result := r.db.WithContext(ctx).
		Model(&Sale{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]interface{}{
			"status":     status,
			"detail":     detail,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *repository) GetByPaymentID(ctx context.Context, paymentID string) (*Sale, error) {
	var sale Sale
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Order("created_at DESC").First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]Sale, error) {
	var sales []Sale
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&sales).Error
	return sales, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// MemoryRepository keeps the ledger in process memory. It backs the ledger
// when no database is configured, so /admin/sales still reports the current
// process lifetime.
type MemoryRepository struct {
	mu    sync.Mutex
	sales []Sale
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Create(_ context.Context, sale *Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = now
	m.sales = append(m.sales, *sale)
	return nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, paymentID string, status Status, detail string) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid sale status: %s", status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for i := range m.sales {
		if m.sales[i].PaymentID == paymentID {
			m.sales[i].Status = status
			m.sales[i].Detail = detail
			m.sales[i].UpdatedAt = time.Now().UTC()
			found = true
		}
	}
	if !found {
		return ErrSaleNotFound
	}
	return nil
}

func (m *MemoryRepository) GetByPaymentID(_ context.Context, paymentID string) (*Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.sales) - 1; i >= 0; i-- {
		if m.sales[i].PaymentID == paymentID {
			sale := m.sales[i]
			return &sale, nil
		}
	}
	return nil, ErrSaleNotFound
}

func (m *MemoryRepository) ListRecent(_ context.Context, limit int) ([]Sale, error) {
	m.mu.Lock()
	out := make([]Sale, len(m.sales))
	copy(out, m.sales)
	m.mu.Unlock()

	// newest first, later inserts win ties
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
