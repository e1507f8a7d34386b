package investmentmock

import (
	"context"
	"errors"

	"p2p-funding-core/internal/domain/investment"
)

var _ investment.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("investmentmock: method not implemented")

type Repo struct {
	CreateFn                func(ctx context.Context, inv *investment.Investment) error
	GetByInvestmentIDFn     func(ctx context.Context, investmentID string) (*investment.Investment, error)
	ListByLoanIDFn          func(ctx context.Context, loanID uint64) ([]investment.Investment, error)
	ListByLoanIDAndStatusFn func(ctx context.Context, loanID uint64, status investment.Status) ([]investment.Investment, error)
	SaveFn                  func(ctx context.Context, inv *investment.Investment) error
	DeleteFn                func(ctx context.Context, inv *investment.Investment) error
}

func (m *Repo) Create(ctx context.Context, inv *investment.Investment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, inv)
	}
	return errUnimplemented
}

func (m *Repo) GetByInvestmentID(ctx context.Context, investmentID string) (*investment.Investment, error) {
	if m.GetByInvestmentIDFn != nil {
		return m.GetByInvestmentIDFn(ctx, investmentID)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID uint64) ([]investment.Investment, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListByLoanIDAndStatus(ctx context.Context, loanID uint64, status investment.Status) ([]investment.Investment, error) {
	if m.ListByLoanIDAndStatusFn != nil {
		return m.ListByLoanIDAndStatusFn(ctx, loanID, status)
	}
	return nil, errUnimplemented
}

func (m *Repo) Save(ctx context.Context, inv *investment.Investment) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, inv)
	}
	return errUnimplemented
}

func (m *Repo) Delete(ctx context.Context, inv *investment.Investment) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, inv)
	}
	return errUnimplemented
}
