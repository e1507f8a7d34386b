package mysql

import (
	"context"

	payDomain "p2p-funding-core/internal/domain/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Create(ctx context.Context, p *payDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]payDomain.Payment, error) {
	var out []payDomain.Payment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("paid_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
