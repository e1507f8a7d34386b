package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	GetFundraisingByBorrowerID(ctx context.Context, borrowerID string) (*Loan, error)
	// SaveVersioned persists ledger fields guarded by the version column and
	// returns uow.ErrVersionConflict when a concurrent writer got there first.
	SaveVersioned(ctx context.Context, l *Loan) error
}
