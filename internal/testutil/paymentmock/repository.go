package paymentmock

import (
	"context"
	"errors"

	"p2p-funding-core/internal/domain/payment"
)

var _ payment.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("paymentmock: method not implemented")

type Repo struct {
	CreateFn       func(ctx context.Context, p *payment.Payment) error
	ListByLoanIDFn func(ctx context.Context, loanID uint64) ([]payment.Payment, error)
}

func (m *Repo) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return errUnimplemented
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID uint64) ([]payment.Payment, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, errUnimplemented
}
