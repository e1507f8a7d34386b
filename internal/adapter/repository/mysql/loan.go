package mysql

import (
	"context"

	loanDomain "p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/uow"

	"gorm.io/gorm"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).First(&out, id)
	return &out, res.Error
}

func (r *LoanRepository) GetFundraisingByBorrowerID(ctx context.Context, borrowerID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("borrower_id = ? AND status = ?", borrowerID, loanDomain.StatusFundraising).
		Order("created_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

// SaveVersioned writes the ledger fields only when the row still carries the
// version we read. Zero rows touched means a concurrent writer won the race.
func (r *LoanRepository) SaveVersioned(ctx context.Context, l *loanDomain.Loan) error {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Updates(map[string]any{
			"committed_pct":     l.CommittedPct,
			"funded_pct":        l.FundedPct,
			"status":            l.Status,
			"status_updated_at": l.StatusUpdatedAt,
			"version":           l.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return uow.ErrVersionConflict
	}
	l.Version++
	return nil
}
