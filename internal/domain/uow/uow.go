package uow

import (
	"context"
	"errors"

	"p2p-funding-core/internal/domain/investment"
	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/payment"
)

// ErrVersionConflict signals an optimistic-concurrency collision: another
// writer updated the loan between our read and write. Bounded-retry safe.
var ErrVersionConflict = errors.New("concurrent ledger update, retry")

type Repos struct {
	Loans       loan.Repository
	Investments investment.Repository
	Payments    payment.Repository
}

// UnitOfWork runs fn against repos bound to one transaction; all writes
// commit together or not at all.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
