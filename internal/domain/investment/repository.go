package investment

import "context"

type Repository interface {
	Create(ctx context.Context, inv *Investment) error
	GetByInvestmentID(ctx context.Context, investmentID string) (*Investment, error)
	ListByLoanID(ctx context.Context, loanID uint64) ([]Investment, error)
	ListByLoanIDAndStatus(ctx context.Context, loanID uint64, status Status) ([]Investment, error)
	Save(ctx context.Context, inv *Investment) error
	// Delete removes a fan-out placeholder after expansion (soft delete).
	Delete(ctx context.Context, inv *Investment) error
}
