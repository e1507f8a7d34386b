package amortization

import (
	"time"

	"p2p-funding-core/internal/domain/investment"
	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/payment"
)

// PayoffBreakdown itemizes a full-settlement figure: the replayed running
// balance, interest billed but unpaid, interest accrued since the last
// anchor, and outstanding late fees. Future technology fees never appear; a
// payoff is a one-time settlement, not a subscription.
type PayoffBreakdown struct {
	Balance         float64 `json:"balance"`
	AccruedInterest float64 `json:"accrued_interest"`
	ArrearsInterest float64 `json:"arrears_interest"`
	ArrearsTechFees float64 `json:"arrears_tech_fees"`
	LateFees        float64 `json:"late_fees"`
}

func (b PayoffBreakdown) Total() float64 {
	return round2(b.Balance + b.AccruedInterest + b.ArrearsInterest + b.ArrearsTechFees + b.LateFees)
}

// Payoff is the exact amount that settles the loan in full at asOf.
func Payoff(l *loan.Loan, invs []investment.Investment, pays []payment.Payment, asOf time.Time, pol Policy) (float64, error) {
	b, err := PayoffDetail(l, invs, pays, asOf, pol)
	if err != nil {
		return 0, err
	}
	return b.Total(), nil
}

// PayoffDetail replays the schedule to asOf and itemizes what settling costs.
func PayoffDetail(l *loan.Loan, invs []investment.Investment, pays []payment.Payment, asOf time.Time, pol Policy) (PayoffBreakdown, error) {
	var out PayoffBreakdown

	plan, err := Schedule(l, invs, pays, asOf, pol)
	if err != nil {
		return out, err
	}

	var (
		lastAnchor time.Time
		seen       bool
	)
	for _, r := range plan.Rows {
		if r.Projected || r.Date.After(asOf) {
			continue
		}
		out.Balance = r.Balance
		if !seen || r.Date.After(lastAnchor) {
			lastAnchor = r.Date
			seen = true
		}
		if r.Overdue {
			// Billed, never received. Standalone late fees stay a separate
			// current charge; capitalized ones already sit in the balance.
			out.ArrearsInterest += r.Interest
			out.ArrearsTechFees += r.TechFee
			if pol.LateFeeMode == LateFeeStandalone {
				out.LateFees += pol.LateFeeFlat
			}
		}
		if r.Type == RowPayment && !r.Overdue {
			out.LateFees -= r.LateFee
			if out.LateFees < 0 {
				out.LateFees = 0
			}
		}
	}
	if !seen {
		return PayoffBreakdown{}, nil
	}

	out.AccruedInterest = round2(AccrueDaily(out.Balance, l.MonthlyRate, daysBetween(lastAnchor, asOf)))
	out.ArrearsInterest = round2(out.ArrearsInterest)
	out.ArrearsTechFees = round2(out.ArrearsTechFees)
	out.LateFees = round2(out.LateFees)
	return out, nil
}
