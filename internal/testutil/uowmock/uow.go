package uowmock

import (
	"context"
	"errors"

	"p2p-funding-core/internal/domain/uow"
)

var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock satisfying uow.UnitOfWork. The common shape
// in tests is Pass(repos), which just invokes fn against the given repos
// without any transaction semantics.
type UoW struct {
	WithinTxFn func(ctx context.Context, fn func(r uow.Repos) error) error
}

// Pass returns a UoW that executes fn directly against r.
func Pass(r uow.Repos) *UoW {
	return &UoW{WithinTxFn: func(ctx context.Context, fn func(uow.Repos) error) error {
		return fn(r)
	}}
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
