package loanmock

import (
	"context"
	"errors"

	"p2p-funding-core/internal/domain/loan"
)

var _ loan.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("loanmock: method not implemented")

// Repo is a function-backed mock satisfying loan.Repository. Fill in only
// the fields a test needs; the rest report errUnimplemented.
type Repo struct {
	CreateFn                     func(ctx context.Context, l *loan.Loan) error
	GetByLoanIDFn                func(ctx context.Context, loanID string) (*loan.Loan, error)
	GetByIDFn                    func(ctx context.Context, id uint64) (*loan.Loan, error)
	GetFundraisingByBorrowerIDFn func(ctx context.Context, borrowerID string) (*loan.Loan, error)
	SaveVersionedFn              func(ctx context.Context, l *loan.Loan) error
}

func (m *Repo) Create(ctx context.Context, l *loan.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return errUnimplemented
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*loan.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*loan.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetFundraisingByBorrowerID(ctx context.Context, borrowerID string) (*loan.Loan, error) {
	if m.GetFundraisingByBorrowerIDFn != nil {
		return m.GetFundraisingByBorrowerIDFn(ctx, borrowerID)
	}
	return nil, errUnimplemented
}

func (m *Repo) SaveVersioned(ctx context.Context, l *loan.Loan) error {
	if m.SaveVersionedFn != nil {
		return m.SaveVersionedFn(ctx, l)
	}
	return errUnimplemented
}
