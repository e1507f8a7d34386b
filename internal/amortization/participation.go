package amortization

import (
	"errors"
	"math"
	"time"

	"p2p-funding-core/internal/domain/investment"
)

var ErrNoConfirmedCapital = errors.New("no confirmed investments to allocate")

// DefaultPlatformCut is the platform's slice of investor interest.
const DefaultPlatformCut = 0.30

// Share is one investment's time-weighted slice of the loan's cash flows.
type Share struct {
	InvestmentID string  `json:"investment_id"`
	InvestorID   string  `json:"investor_id"`
	Amount       float64 `json:"amount"`
	Fraction     float64 `json:"fraction"`
}

// DailyRate is the effective daily rate matching monthly rate i over the
// reference month.
func DailyRate(i float64) float64 {
	return math.Pow(1+i, 1/DaysPerMonth) - 1
}

// Fractions computes each confirmed investment's participation fraction by
// time-valued contribution: every amount is discounted back to the focal date
// (the first disbursement anchor), so capital that entered earlier carries
// more weight than the same amount arriving later. Fractions sum to 1.
func Fractions(invs []investment.Investment, monthlyRate float64, asOf time.Time) ([]Share, error) {
	capital := confirmedAsOf(invs, asOf)
	if len(capital) == 0 {
		return nil, ErrNoConfirmedCapital
	}

	focal := capital[0].Anchor()
	daily := DailyRate(monthlyRate)

	pvs := make([]float64, len(capital))
	var total float64
	for idx, iv := range capital {
		pv := iv.Amount / math.Pow(1+daily, daysBetween(focal, iv.Anchor()))
		pvs[idx] = pv
		total += pv
	}
	if total <= 0 {
		return nil, ErrNoConfirmedCapital
	}

	shares := make([]Share, len(capital))
	for idx, iv := range capital {
		shares[idx] = Share{
			InvestmentID: iv.InvestmentID,
			InvestorID:   iv.InvestorID,
			Amount:       iv.Amount,
			Fraction:     pvs[idx] / total,
		}
	}
	return shares, nil
}

// FractionByInvestor folds per-investment fractions into one fraction per
// investor.
func FractionByInvestor(shares []Share) map[string]float64 {
	out := make(map[string]float64, len(shares))
	for _, s := range shares {
		out[s.InvestorID] += s.Fraction
	}
	return out
}

// InvestorRow is a schedule row viewed through one participant's fraction.
// The technology fee is platform revenue and never shared.
type InvestorRow struct {
	Row
	ShareAmount   float64 `json:"share_amount"`
	GrossInterest float64 `json:"gross_interest"`
	NetInterest   float64 `json:"net_interest"`
}

// InvestorView applies a participation fraction to every interest-bearing row
// and deducts the platform cut from the interest portion.
func InvestorView(plan *Plan, fraction, platformCut float64) []InvestorRow {
	var out []InvestorRow
	for _, r := range plan.Rows {
		if r.Type != RowPayment {
			continue
		}
		gross := round2(fraction * r.Interest)
		out = append(out, InvestorRow{
			Row:           r,
			ShareAmount:   round2(fraction * (r.Principal + r.Interest)),
			GrossInterest: gross,
			NetInterest:   round2(gross * (1 - platformCut)),
		})
	}
	return out
}
