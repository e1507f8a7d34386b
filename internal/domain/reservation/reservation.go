package reservation

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("reservation not found")
	ErrExceedsAvailability = errors.New("amount exceeds available funding capacity")
	ErrInvalidAmount       = errors.New("reservation amount must be positive")
)

// DefaultTTL is the advisory hold window. Correctness never depends on it:
// capacity is re-checked at confirmation time.
const DefaultTTL = 5 * time.Minute

// Reservation is a time-boxed capacity hold for one investor on one loan.
// It lives only in the ephemeral store and never consumes ledger capacity.
type Reservation struct {
	LoanID     string    `json:"loan_id"`
	InvestorID string    `json:"investor_id"`
	Amount     float64   `json:"amount"`
	ReservedAt time.Time `json:"reserved_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Active reports whether the hold still counts at the given instant.
func (r *Reservation) Active(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// Store is the ephemeral TTL store contract. Implementations may expire
// entries on their own; callers still filter on ExpiresAt because a stale
// entry must never count toward consumed capacity.
type Store interface {
	Put(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, loanID, investorID string) (*Reservation, error)
	// ListActive returns unexpired reservations for a loan as of now and may
	// opportunistically delete expired ones it encounters.
	ListActive(ctx context.Context, loanID string, now time.Time) ([]Reservation, error)
	// Delete is unconditional and idempotent, expired entries included.
	Delete(ctx context.Context, loanID, investorID string) error
}
