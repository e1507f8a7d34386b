package loanbook

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/reservation"
	"p2p-funding-core/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct {
	loans loan.Repository
	holds reservation.Store
	now   func() time.Time
}

func NewUsecase(loans loan.Repository, holds reservation.Store) *Usecase {
	return &Usecase{loans: loans, holds: holds, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the wall clock; tests only.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

type CreateLoanInput struct {
	BorrowerID      string  `json:"borrower_id"`
	Principal       float64 `json:"principal"`
	TermMonths      int     `json:"term_months"`
	MonthlyRate     float64 `json:"monthly_rate"`
	DisbursementFee float64 `json:"disbursement_fee"`
	MonthlyTechFee  float64 `json:"monthly_tech_fee"`
	PaymentDay      int     `json:"payment_day"`
}

type LoanDTO struct {
	LoanID       string    `json:"loan_id"`
	BorrowerID   string    `json:"borrower_id"`
	Principal    float64   `json:"principal"`
	TermMonths   int       `json:"term_months"`
	MonthlyRate  float64   `json:"monthly_rate"`
	PaymentDay   int       `json:"payment_day"`
	Status       string    `json:"status"`
	CommittedPct float64   `json:"committed_pct"`
	FundedPct    float64   `json:"funded_pct"`
	AmountToFund float64   `json:"amount_to_fund"` // nets out active reservations
	CreatedAt    time.Time `json:"created_at"`
}

func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if !id.Valid(in.BorrowerID) || in.Principal <= 0 || in.TermMonths <= 0 ||
		in.MonthlyRate < 0 || in.PaymentDay < 1 || in.PaymentDay > 28 {
		return nil, loan.ErrInvalidTerms
	}

	active, err := u.loans.GetFundraisingByBorrowerID(ctx, in.BorrowerID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", loan.ErrBorrowerHasActive, active.LoanID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	l := &loan.Loan{
		LoanID:          id.NewID32(),
		BorrowerID:      in.BorrowerID,
		Principal:       in.Principal,
		TermMonths:      in.TermMonths,
		MonthlyRate:     in.MonthlyRate,
		DisbursementFee: in.DisbursementFee,
		MonthlyTechFee:  in.MonthlyTechFee,
		PaymentDay:      in.PaymentDay,
		Status:          loan.StatusFundraising,
		StatusUpdatedAt: u.now(),
	}
	if err := u.loans.Create(ctx, l); err != nil {
		return nil, err
	}
	return u.toDTO(ctx, l), nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	return u.toDTO(ctx, l), nil
}

func (u *Usecase) toDTO(ctx context.Context, l *loan.Loan) *LoanDTO {
	available := math.Floor(l.AmountToFund())
	if u.holds != nil {
		if held, err := u.holds.ListActive(ctx, l.LoanID, u.now()); err == nil {
			for _, r := range held {
				available -= r.Amount
			}
		}
	}
	if available < 0 {
		available = 0
	}
	return &LoanDTO{
		LoanID:       l.LoanID,
		BorrowerID:   l.BorrowerID,
		Principal:    l.Principal,
		TermMonths:   l.TermMonths,
		MonthlyRate:  l.MonthlyRate,
		PaymentDay:   l.PaymentDay,
		Status:       string(l.Status),
		CommittedPct: l.CommittedPct,
		FundedPct:    l.FundedPct,
		AmountToFund: available,
		CreatedAt:    l.CreatedAt,
	}
}
