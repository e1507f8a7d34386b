// Package amortization holds the pure schedule, participation and payoff
// math. Nothing here touches a store or a wall clock: callers pass the loan,
// its investment/payment history and an as-of instant, and identical inputs
// always produce identical output.
//
// Interest conventions: a scheduled period counts as one nominal month, so an
// undisturbed period charges exactly balance*rate. A period split by a
// mid-cycle capital injection prorates that month by actual days on each side
// of the injection. Accrual to an arbitrary instant (payoff, partial periods)
// uses the effective daily rate over a 30.4167-day reference month:
// balance*((1+rate)^(days/30.4167)-1).
package amortization

import (
	"math"
	"sort"
	"time"

	"p2p-funding-core/internal/domain/investment"
	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/payment"
)

// DaysPerMonth is the reference month length for daily-effective accrual.
const DaysPerMonth = 30.4167

type RowType string

const (
	RowDisbursement   RowType = "disbursement"
	RowPayment        RowType = "payment"
	RowCapitalization RowType = "capitalization"
)

// Row is one derived cash-flow line. Never persisted.
type Row struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
	Type  RowType   `json:"type"`
	// Amount is the cash flow: negative means money out to the borrower.
	Amount    float64 `json:"amount"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	TechFee   float64 `json:"tech_fee"`
	LateFee   float64 `json:"late_fee"`
	// DisbFee is set on disbursement rows only.
	DisbFee   float64 `json:"disbursement_fee,omitempty"`
	Balance   float64 `json:"balance"`
	Overdue   bool    `json:"overdue,omitempty"`
	Projected bool    `json:"projected,omitempty"`
	PaymentID string  `json:"payment_id,omitempty"`
}

// LateFeeMode names what happens to a late fee once billed. Standalone keeps
// it a current-period charge added to the next required payment; capitalize
// folds it into the running balance at the missed period's boundary.
type LateFeeMode string

const (
	LateFeeStandalone LateFeeMode = "standalone"
	LateFeeCapitalize LateFeeMode = "capitalize"
)

type Policy struct {
	LateFeeMode LateFeeMode
	// LateFeeFlat is charged once per overdue period.
	LateFeeFlat float64
}

func DefaultPolicy() Policy { return Policy{LateFeeMode: LateFeeStandalone} }

type Plan struct {
	Rows []Row `json:"rows"`
	// IsProjection is true when the loan was not fully funded as of the
	// requested instant.
	IsProjection bool `json:"is_projection"`
	// Overdue is true when at least one past-due period has no payment.
	Overdue bool `json:"overdue"`
}

// Annuity is the level monthly payment that amortizes balance over n periods
// at monthly rate i.
func Annuity(balance, i float64, n int) float64 {
	if n <= 0 {
		return balance
	}
	if i == 0 {
		return balance / float64(n)
	}
	return balance * i / (1 - math.Pow(1+i, float64(-n)))
}

// AccrueDaily is interest earned on balance over the given day span using the
// effective daily rate derived from monthly rate i.
func AccrueDaily(balance, i, days float64) float64 {
	if days <= 0 || balance <= 0 {
		return 0
	}
	return balance * (math.Pow(1+i, days/DaysPerMonth) - 1)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func daysBetween(a, b time.Time) float64 { return b.Sub(a).Hours() / 24 }

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// confirmedAsOf filters to investments that were confirmed by asOf, ordered
// by accrual anchor.
func confirmedAsOf(invs []investment.Investment, asOf time.Time) []investment.Investment {
	out := make([]investment.Investment, 0, len(invs))
	for _, iv := range invs {
		if iv.Status != investment.StatusConfirmed {
			continue
		}
		if iv.ConfirmedAt != nil && iv.ConfirmedAt.After(asOf) {
			continue
		}
		out = append(out, iv)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].Anchor().Equal(out[b].Anchor()) {
			return out[a].Anchor().Before(out[b].Anchor())
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// paymentsAsOf filters to payments received by asOf, in date order.
func paymentsAsOf(pays []payment.Payment, asOf time.Time) []payment.Payment {
	out := make([]payment.Payment, 0, len(pays))
	for _, p := range pays {
		if p.PaidAt.After(asOf) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].PaidAt.Equal(out[b].PaidAt) {
			return out[a].PaidAt.Before(out[b].PaidAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// firstDueDate is the first occurrence of day strictly after the anchor.
func firstDueDate(anchor time.Time, day int) time.Time {
	y, m, _ := anchor.Date()
	d := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	if !d.After(anchor) {
		d = d.AddDate(0, 1, 0)
	}
	return d
}

// Schedule derives the full cash-flow plan for a loan from its confirmed
// investments and recorded payments, as of the given instant.
func Schedule(l *loan.Loan, invs []investment.Investment, pays []payment.Payment, asOf time.Time, pol Policy) (*Plan, error) {
	if l.TermMonths <= 0 || l.Principal <= 0 {
		return nil, loan.ErrInvalidTerms
	}

	capital := confirmedAsOf(invs, asOf)
	plan := &Plan{}

	var fundedSum float64
	for _, iv := range capital {
		fundedSum += iv.Amount
	}
	plan.IsProjection = fundedSum < l.Principal-0.01

	if len(capital) == 0 {
		return plan, nil
	}

	disbAnchor := capital[0].Anchor()
	n := l.TermMonths
	i := l.MonthlyRate

	// Due dates; dates[0] is the disbursement anchor so dates[k-1]..dates[k]
	// brackets period k.
	dates := make([]time.Time, n+1)
	dates[0] = disbAnchor
	dates[1] = firstDueDate(disbAnchor, l.PaymentDay)
	for k := 2; k <= n; k++ {
		dates[k] = dates[1].AddDate(0, k-1, 0)
	}

	payQueue := paymentsAsOf(pays, asOf)
	capQueue := capital

	var (
		rows           []Row
		balance        float64
		pendingLateFee float64
		idx            int
	)

	emit := func(r Row) {
		r.Index = idx
		idx++
		rows = append(rows, r)
	}

	for k := 1; k <= n; k++ {
		start, end := dates[k-1], dates[k]
		periodDays := daysBetween(start, end)
		segStart := start
		periodInterest := 0.0

		// Capital entering during this period. The nominal month of interest
		// is prorated by actual days around each injection.
		for len(capQueue) > 0 && !capQueue[0].Anchor().After(end) {
			c := capQueue[0]
			capQueue = capQueue[1:]
			if periodDays > 0 {
				periodInterest += balance * i * (daysBetween(segStart, c.Anchor()) / periodDays)
			}
			balance = round2(balance + c.Amount)
			segStart = c.Anchor()

			typ := RowCapitalization
			var fee float64
			if sameDay(c.Anchor(), disbAnchor) {
				typ = RowDisbursement
				if len(rows) == 0 {
					fee = l.DisbursementFee
				}
			}
			emit(Row{
				Date:    c.Anchor(),
				Type:    typ,
				Amount:  round2(-(c.Amount - fee)),
				DisbFee: fee,
				Balance: balance,
			})
		}
		if periodDays > 0 {
			periodInterest += balance * i * (daysBetween(segStart, end) / periodDays)
		}

		// Re-amortize over the remaining term from the live balance; for a
		// clean history this reproduces the original level payment.
		remaining := n - k + 1
		plannedInterest := round2(periodInterest)
		var plannedPrincipal float64
		if remaining == 1 {
			plannedPrincipal = balance
		} else {
			plannedPrincipal = round2(Annuity(balance, i, remaining) - balance*i)
			if plannedPrincipal > balance {
				plannedPrincipal = balance
			}
		}

		switch {
		case len(payQueue) > 0:
			// A recorded payment settles the earliest open period and the
			// running balance follows the capital actually paid.
			p := payQueue[0]
			payQueue = payQueue[1:]
			balance = round2(balance - p.Capital)
			emit(Row{
				Date:      p.PaidAt,
				Type:      RowPayment,
				Amount:    p.Total,
				Interest:  p.Interest,
				Principal: p.Capital,
				TechFee:   p.TechFee,
				LateFee:   p.LateFee,
				Balance:   balance,
				PaymentID: p.PaymentID,
			})
			pendingLateFee -= p.LateFee
			if pendingLateFee < 0 {
				pendingLateFee = 0
			}

		case end.After(asOf):
			// Future period: planned figures roll the balance forward.
			balance = round2(balance - plannedPrincipal)
			emit(Row{
				Date:      end,
				Type:      RowPayment,
				Amount:    round2(plannedPrincipal + plannedInterest + l.MonthlyTechFee + pendingLateFee),
				Interest:  plannedInterest,
				Principal: plannedPrincipal,
				TechFee:   l.MonthlyTechFee,
				LateFee:   round2(pendingLateFee),
				Balance:   balance,
				Projected: true,
			})
			pendingLateFee = 0

		default:
			// Past due with nothing received: balance stays put, the late fee
			// lands on the next required payment unless policy capitalizes it.
			plan.Overdue = true
			emit(Row{
				Date:      end,
				Type:      RowPayment,
				Amount:    round2(plannedPrincipal + plannedInterest + l.MonthlyTechFee),
				Interest:  plannedInterest,
				Principal: plannedPrincipal,
				TechFee:   l.MonthlyTechFee,
				Balance:   balance,
				Overdue:   true,
			})
			if pol.LateFeeMode == LateFeeCapitalize {
				balance = round2(balance + pol.LateFeeFlat)
			} else {
				pendingLateFee += pol.LateFeeFlat
			}
		}
	}

	// Capital confirmed past maturity and payments beyond the term still show
	// up so the history stays complete.
	for _, c := range capQueue {
		balance = round2(balance + c.Amount)
		emit(Row{Date: c.Anchor(), Type: RowCapitalization, Amount: round2(-c.Amount), Balance: balance})
	}
	for _, p := range payQueue {
		balance = round2(balance - p.Capital)
		emit(Row{
			Date: p.PaidAt, Type: RowPayment, Amount: p.Total,
			Interest: p.Interest, Principal: p.Capital, TechFee: p.TechFee,
			LateFee: p.LateFee, Balance: balance, PaymentID: p.PaymentID,
		})
	}

	plan.Rows = rows
	return plan, nil
}
