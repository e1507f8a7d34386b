package mysql

import (
	"context"

	invDomain "p2p-funding-core/internal/domain/investment"

	"gorm.io/gorm"
)

type InvestmentRepository struct{ db *gorm.DB }

func NewInvestmentRepository(db *gorm.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) Create(ctx context.Context, inv *invDomain.Investment) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *InvestmentRepository) GetByInvestmentID(ctx context.Context, investmentID string) (*invDomain.Investment, error) {
	var out invDomain.Investment
	res := r.db.WithContext(ctx).Where("investment_id = ?", investmentID).First(&out)
	return &out, res.Error
}

func (r *InvestmentRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]invDomain.Investment, error) {
	var out []invDomain.Investment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *InvestmentRepository) ListByLoanIDAndStatus(ctx context.Context, loanID uint64, status invDomain.Status) ([]invDomain.Investment, error) {
	var out []invDomain.Investment
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanID, status).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *InvestmentRepository) Save(ctx context.Context, inv *invDomain.Investment) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *InvestmentRepository) Delete(ctx context.Context, inv *invDomain.Investment) error {
	return r.db.WithContext(ctx).Delete(inv).Error
}
