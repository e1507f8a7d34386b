package funding

import (
	"context"
	"math"
	"time"

	"p2p-funding-core/internal/amortization"
	"p2p-funding-core/internal/domain/event"
	"p2p-funding-core/internal/domain/investment"
	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/payment"
	"p2p-funding-core/internal/domain/uow"
	"p2p-funding-core/pkg/id"
)

type PaymentDTO struct {
	PaymentID string    `json:"payment_id"`
	LoanID    string    `json:"loan_id"`
	PayerID   string    `json:"payer_id"`
	PaidAt    time.Time `json:"paid_at"`
	Total     float64   `json:"total"`
	Capital   float64   `json:"capital"`
	Interest  float64   `json:"interest"`
	TechFee   float64   `json:"tech_fee"`
	LateFee   float64   `json:"late_fee"`
}

// RecordPayment books a borrower remittance. The total is decomposed against
// the schedule as of the payment date: billed late fees, the technology fee
// and due interest come first, everything left amortizes capital.
func (u *Usecase) RecordPayment(ctx context.Context, loanID, payerID string, paidAt time.Time, total float64) (*PaymentDTO, error) {
	if total <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		dto *PaymentDTO
		evs []event.Event
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := loadLoan(ctx, r, loanID)
		if err != nil {
			return err
		}
		p, err := u.bookPayment(ctx, r, l, payerID, paidAt, total)
		if err != nil {
			return err
		}
		dto = &PaymentDTO{
			PaymentID: p.PaymentID,
			LoanID:    l.LoanID,
			PayerID:   p.PayerID,
			PaidAt:    p.PaidAt,
			Total:     p.Total,
			Capital:   p.Capital,
			Interest:  p.Interest,
			TechFee:   p.TechFee,
			LateFee:   p.LateFee,
		}
		ev := event.New(event.TypePaymentRecorded, l.LoanID, u.now())
		ev.Payment = &event.PaymentChange{PaymentID: p.PaymentID, PayerID: p.PayerID, Total: p.Total}
		evs = []event.Event{ev}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	return dto, nil
}

// bookPayment decomposes and persists one payment inside the caller's
// transaction, then settles the loan when nothing remains owed.
func (u *Usecase) bookPayment(ctx context.Context, r uow.Repos, l *loan.Loan, payerID string, paidAt time.Time, total float64) (*payment.Payment, error) {
	invs, err := r.Investments.ListByLoanIDAndStatus(ctx, l.ID, investment.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	prior, err := r.Payments.ListByLoanID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return u.writePayment(ctx, r, l, invs, prior, payerID, paidAt, total)
}

// writePayment is bookPayment's write half: the caller supplies the loan's
// history so transactions that must front-load their reads can.
func (u *Usecase) writePayment(ctx context.Context, r uow.Repos, l *loan.Loan, invs []investment.Investment, prior []payment.Payment, payerID string, paidAt time.Time, total float64) (*payment.Payment, error) {
	plan, err := amortization.Schedule(l, invs, prior, paidAt, u.pol)
	if err != nil {
		return nil, err
	}
	owed, err := amortization.PayoffDetail(l, invs, prior, paidAt, u.pol)
	if err != nil {
		return nil, err
	}

	p := &payment.Payment{
		PaymentID: id.NewID32(),
		LoanID:    l.ID,
		PayerID:   payerID,
		PaidAt:    paidAt,
		Total:     total,
	}
	if total >= owed.Total()-0.01 {
		// Full settlement: capital clears the whole balance and interest is
		// what actually accrued, not the current period's planned figure.
		p.Capital = owed.Balance
		p.Interest = round2(owed.AccruedInterest + owed.ArrearsInterest)
		p.TechFee = owed.ArrearsTechFees
		p.LateFee = owed.LateFees
		if excess := round2(total - owed.Total()); excess > 0 {
			p.Interest = round2(p.Interest + excess)
		}
	} else {
		decompose(p, plan)
	}
	if err := r.Payments.Create(ctx, p); err != nil {
		return nil, err
	}

	history := append(prior, *p)
	left, err := amortization.Payoff(l, invs, history, paidAt, u.pol)
	if err != nil {
		return nil, err
	}
	after, err := amortization.Schedule(l, invs, history, paidAt, u.pol)
	if err != nil {
		return nil, err
	}

	next := l.Status
	switch {
	case left <= 0.01:
		next = loan.StatusSettled
	case l.Status == loan.StatusFunded && after.Overdue:
		next = loan.StatusOverdue
	case l.Status == loan.StatusOverdue && !after.Overdue:
		// Caught up.
		next = loan.StatusFunded
	}
	if next != l.Status {
		l.Status = next
		l.StatusUpdatedAt = u.now()
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// decompose fills the payment's parts from the next open schedule period:
// late fees, then tech fee, then interest, remainder capital.
func decompose(p *payment.Payment, plan *amortization.Plan) {
	var open *amortization.Row
	for idx := range plan.Rows {
		r := &plan.Rows[idx]
		if r.Type == amortization.RowPayment && r.PaymentID == "" {
			open = r
			break
		}
	}
	rest := p.Total
	take := func(due float64) float64 {
		got := math.Min(rest, due)
		if got < 0 {
			got = 0
		}
		rest = round2(rest - got)
		return round2(got)
	}
	if open != nil {
		p.LateFee = take(open.LateFee)
		p.TechFee = take(open.TechFee)
		p.Interest = take(open.Interest)
	}
	p.Capital = rest
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
