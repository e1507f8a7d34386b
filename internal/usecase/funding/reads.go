package funding

import (
	"context"
	"time"

	"p2p-funding-core/internal/amortization"
	"p2p-funding-core/internal/domain/investment"
	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/payment"
	"p2p-funding-core/internal/domain/uow"
)

// Read-side operations. These are thin loads feeding the pure amortization
// functions; nothing here is cached as a source of truth and callers may
// recompute at any asOf instant.

type ScheduleDTO struct {
	LoanID       string             `json:"loan_id"`
	AsOf         time.Time          `json:"as_of"`
	IsProjection bool               `json:"is_projection"`
	Overdue      bool               `json:"overdue"`
	Rows         []amortization.Row `json:"rows"`
}

type PayoffDTO struct {
	LoanID string    `json:"loan_id"`
	AsOf   time.Time `json:"as_of"`
	Amount float64   `json:"amount"`
}

type ParticipationDTO struct {
	LoanID      string                     `json:"loan_id"`
	AsOf        time.Time                  `json:"as_of"`
	PlatformCut float64                    `json:"platform_cut"`
	Shares      []amortization.Share       `json:"shares"`
	Rows        []amortization.InvestorRow `json:"rows,omitempty"`
}

func (u *Usecase) GetSchedule(ctx context.Context, loanID string, asOf time.Time) (*ScheduleDTO, error) {
	var dto *ScheduleDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, invs, pays, err := u.loadHistory(ctx, r, loanID)
		if err != nil {
			return err
		}
		plan, err := amortization.Schedule(l, invs, pays, asOf, u.pol)
		if err != nil {
			return err
		}
		dto = &ScheduleDTO{
			LoanID:       l.LoanID,
			AsOf:         asOf,
			IsProjection: plan.IsProjection,
			Overdue:      plan.Overdue,
			Rows:         plan.Rows,
		}
		return nil
	})
	return dto, err
}

func (u *Usecase) GetPayoff(ctx context.Context, loanID string, asOf time.Time) (*PayoffDTO, error) {
	var dto *PayoffDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, invs, pays, err := u.loadHistory(ctx, r, loanID)
		if err != nil {
			return err
		}
		amount, err := amortization.Payoff(l, invs, pays, asOf, u.pol)
		if err != nil {
			return err
		}
		dto = &PayoffDTO{LoanID: l.LoanID, AsOf: asOf, Amount: amount}
		return nil
	})
	return dto, err
}

// GetParticipation returns every participant's time-weighted fraction; when
// investorID is non-empty the response also carries that investor's per-row
// net view.
func (u *Usecase) GetParticipation(ctx context.Context, loanID, investorID string, asOf time.Time, platformCut float64) (*ParticipationDTO, error) {
	var dto *ParticipationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, invs, pays, err := u.loadHistory(ctx, r, loanID)
		if err != nil {
			return err
		}
		shares, err := amortization.Fractions(invs, l.MonthlyRate, asOf)
		if err != nil {
			return err
		}
		dto = &ParticipationDTO{LoanID: l.LoanID, AsOf: asOf, PlatformCut: platformCut, Shares: shares}

		if investorID != "" {
			plan, err := amortization.Schedule(l, invs, pays, asOf, u.pol)
			if err != nil {
				return err
			}
			fraction := amortization.FractionByInvestor(shares)[investorID]
			dto.Rows = amortization.InvestorView(plan, fraction, platformCut)
		}
		return nil
	})
	return dto, err
}

func (u *Usecase) loadHistory(ctx context.Context, r uow.Repos, loanID string) (*loan.Loan, []investment.Investment, []payment.Payment, error) {
	l, err := loadLoan(ctx, r, loanID)
	if err != nil {
		return nil, nil, nil, err
	}
	invs, err := r.Investments.ListByLoanIDAndStatus(ctx, l.ID, investment.StatusConfirmed)
	if err != nil {
		return nil, nil, nil, err
	}
	pays, err := r.Payments.ListByLoanID(ctx, l.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return l, invs, pays, nil
}
