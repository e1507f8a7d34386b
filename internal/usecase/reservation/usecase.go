package reservation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	domain "p2p-funding-core/internal/domain/reservation"

	"p2p-funding-core/internal/domain/event"
	"p2p-funding-core/internal/domain/loan"

	"gorm.io/gorm"
)

// Usecase is the advisory capacity-hold layer. It may race: two investors can
// hold overlapping availability at once, and nothing here moves ledger
// capacity. The confirmation path re-checks everything.
type Usecase struct {
	loans loan.Repository
	store domain.Store
	pub   event.Publisher
	ttl   time.Duration
	now   func() time.Time
}

func NewUsecase(loans loan.Repository, store domain.Store, pub event.Publisher, ttl time.Duration) *Usecase {
	if ttl <= 0 {
		ttl = domain.DefaultTTL
	}
	if pub == nil {
		pub = event.Nop{}
	}
	return &Usecase{loans: loans, store: store, pub: pub, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the wall clock; tests only.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

type ReservationDTO struct {
	LoanID     string    `json:"loan_id"`
	InvestorID string    `json:"investor_id"`
	Amount     float64   `json:"amount"`
	ReservedAt time.Time `json:"reserved_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type AvailabilityDTO struct {
	LoanID       string           `json:"loan_id"`
	Available    float64          `json:"available"`
	Reservations []ReservationDTO `json:"reservations"`
}

// Reserve places or refreshes the single hold for (loan, investor). The
// available figure counts every other investor's active hold; the caller's
// own existing hold is replaced, not stacked.
func (u *Usecase) Reserve(ctx context.Context, loanID, investorID string, amount float64) (*ReservationDTO, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}

	now := u.now()
	available, err := u.available(ctx, l, investorID, now)
	if err != nil {
		return nil, err
	}
	if amount > available {
		return nil, fmt.Errorf("%w: requested %.2f, available %.2f",
			domain.ErrExceedsAvailability, amount, available)
	}

	res := &domain.Reservation{
		LoanID:     loanID,
		InvestorID: investorID,
		Amount:     amount,
		ReservedAt: now,
		ExpiresAt:  now.Add(u.ttl),
	}
	// Refreshing keeps the original intent timestamp.
	if prev, err := u.store.Get(ctx, loanID, investorID); err == nil && prev.Active(now) {
		res.ReservedAt = prev.ReservedAt
	}
	if err := u.store.Put(ctx, res); err != nil {
		return nil, err
	}

	ev := event.New(event.TypeReservationChanged, loanID, now)
	ev.Reservation = &event.ReservationChange{InvestorID: investorID, Amount: amount}
	u.pub.Publish(ctx, ev)

	dto := ReservationDTO(*res)
	return &dto, nil
}

// Cancel always succeeds, expired holds included.
func (u *Usecase) Cancel(ctx context.Context, loanID, investorID string) error {
	if err := u.store.Delete(ctx, loanID, investorID); err != nil {
		return err
	}
	ev := event.New(event.TypeReservationChanged, loanID, u.now())
	ev.Reservation = &event.ReservationChange{InvestorID: investorID, Cancelled: true}
	u.pub.Publish(ctx, ev)
	return nil
}

// List returns the live availability view for a loan.
func (u *Usecase) List(ctx context.Context, loanID string) (*AvailabilityDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	now := u.now()
	active, err := u.store.ListActive(ctx, loanID, now)
	if err != nil {
		return nil, err
	}
	out := &AvailabilityDTO{LoanID: loanID, Available: math.Floor(l.AmountToFund())}
	for _, r := range active {
		out.Available -= r.Amount
		out.Reservations = append(out.Reservations, ReservationDTO(r))
	}
	if out.Available < 0 {
		out.Available = 0
	}
	return out, nil
}

// available is the uncommitted principal rounded down to whole currency
// units, minus every other investor's active hold.
func (u *Usecase) available(ctx context.Context, l *loan.Loan, investorID string, now time.Time) (float64, error) {
	active, err := u.store.ListActive(ctx, l.LoanID, now)
	if err != nil {
		return 0, err
	}
	available := math.Floor(l.AmountToFund())
	for _, r := range active {
		if r.InvestorID == investorID {
			continue
		}
		available -= r.Amount
	}
	if available < 0 {
		available = 0
	}
	return available, nil
}
