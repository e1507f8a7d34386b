package funding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"p2p-funding-core/internal/amortization"
	"p2p-funding-core/internal/domain/event"
	"p2p-funding-core/internal/domain/investment"
	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/payment"
	domainres "p2p-funding-core/internal/domain/reservation"
	"p2p-funding-core/internal/domain/uow"
	"p2p-funding-core/pkg/id"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	// ErrCapacityExceeded: the write would push funded past 100% beyond
	// tolerance. Never clamped silently.
	ErrCapacityExceeded = errors.New("confirmation would exceed full funding")
	// ErrLoanGone: the referenced loan vanished between intent and commit.
	ErrLoanGone       = errors.New("loan gone")
	ErrInvalidAmount  = errors.New("investment amount out of range")
	ErrRetriesExhaust = errors.New("ledger contention, retries exhausted")
)

// maxRetries bounds automatic retry on optimistic-lock collisions.
const maxRetries = 3

// Usecase owns the authoritative funding ledger and the atomic investment
// transitions around it. All reads precede all writes inside each
// transaction, and a transaction commits all of its writes or none.
type Usecase struct {
	uow   uow.UnitOfWork
	holds domainres.Store
	pub   event.Publisher
	log   zerolog.Logger
	pol   amortization.Policy
	now   func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, holds domainres.Store, pub event.Publisher, pol amortization.Policy, log zerolog.Logger) *Usecase {
	if pub == nil {
		pub = event.Nop{}
	}
	return &Usecase{
		uow:   tx,
		holds: holds,
		pub:   pub,
		log:   log,
		pol:   pol,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock; tests only.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

type InvestmentDTO struct {
	InvestmentID string     `json:"investment_id"`
	LoanID       string     `json:"loan_id"`
	InvestorID   string     `json:"investor_id"`
	Amount       float64    `json:"amount"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

func investmentDTO(inv *investment.Investment, loanID string) *InvestmentDTO {
	return &InvestmentDTO{
		InvestmentID: inv.InvestmentID,
		LoanID:       loanID,
		InvestorID:   inv.InvestorID,
		Amount:       inv.Amount,
		Kind:         string(inv.Kind),
		Status:       string(inv.Status),
		CreatedAt:    inv.CreatedAt,
		ConfirmedAt:  inv.ConfirmedAt,
	}
}

// CreatePending turns a finalized reservation into a pending investment and
// moves the committed percentage. The reservation itself is advisory and is
// dropped on success.
func (u *Usecase) CreatePending(ctx context.Context, loanID, investorID string, amount float64) (*InvestmentDTO, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		dto *InvestmentDTO
		evs []event.Event
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := loadLoan(ctx, r, loanID)
		if err != nil {
			return err
		}
		if amount > l.AmountToFund()+0.01 {
			return fmt.Errorf("%w: %.2f exceeds remaining %.2f", ErrInvalidAmount, amount, l.AmountToFund())
		}

		now := u.now()
		inv := &investment.Investment{
			InvestmentID: id.NewID32(),
			LoanID:       l.ID,
			InvestorID:   investorID,
			Amount:       amount,
			Kind:         investment.KindDirect,
			Status:       investment.StatusPending,
			CreatedAt:    now,
		}
		if err := r.Investments.Create(ctx, inv); err != nil {
			return err
		}

		l.CommittedPct = clampPct(l.CommittedPct + amount/l.Principal*100)
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return err
		}

		dto = investmentDTO(inv, l.LoanID)
		evs = u.ledgerEvents(l, inv, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort: the hold did its job.
	if u.holds != nil {
		if err := u.holds.Delete(ctx, loanID, investorID); err != nil {
			u.log.Warn().Err(err).Str("loan_id", loanID).Msg("drop reservation after pending create")
		}
	}
	u.publish(ctx, evs)
	return dto, nil
}

// CreateFanout records a borrower repayment earmarked for redistribution to
// the original funders as fresh reinvestable capital on another loan.
func (u *Usecase) CreateFanout(ctx context.Context, loanID, repaidLoanID, payerID string, sources []investment.Source) (*InvestmentDTO, error) {
	if len(sources) == 0 {
		return nil, investment.ErrNoSources
	}
	var total float64
	for _, s := range sources {
		if s.Amount <= 0 || !id.Valid(s.InvestorID) {
			return nil, ErrInvalidAmount
		}
		total += s.Amount
	}

	var (
		dto *InvestmentDTO
		evs []event.Event
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := loadLoan(ctx, r, loanID)
		if err != nil {
			return err
		}
		repaid, err := loadLoan(ctx, r, repaidLoanID)
		if err != nil {
			return err
		}
		if total > l.AmountToFund()+0.01 {
			return fmt.Errorf("%w: %.2f exceeds remaining %.2f", ErrInvalidAmount, total, l.AmountToFund())
		}

		now := u.now()
		repaidID := repaid.ID
		inv := &investment.Investment{
			InvestmentID: id.NewID32(),
			LoanID:       l.ID,
			InvestorID:   payerID,
			Amount:       total,
			Kind:         investment.KindFanout,
			Status:       investment.StatusPending,
			CreatedAt:    now,
			Sources:      sources,
			RepaidLoanID: &repaidID,
		}
		if err := r.Investments.Create(ctx, inv); err != nil {
			return err
		}

		l.CommittedPct = clampPct(l.CommittedPct + total/l.Principal*100)
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return err
		}

		dto = investmentDTO(inv, l.LoanID)
		evs = u.ledgerEvents(l, inv, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	return dto, nil
}

// Confirm atomically flips a pending investment to confirmed, re-validating
// capacity. Safe to call again after success: it reports ErrAlreadyFinal.
// Optimistic-lock collisions are retried up to maxRetries.
func (u *Usecase) Confirm(ctx context.Context, investmentID string) (*InvestmentDTO, error) {
	for attempt := 1; ; attempt++ {
		dto, err := u.confirmOnce(ctx, investmentID)
		if !errors.Is(err, uow.ErrVersionConflict) {
			return dto, err
		}
		if attempt >= maxRetries {
			u.log.Warn().Str("investment_id", investmentID).Int("attempts", attempt).
				Msg("confirm retries exhausted")
			return nil, fmt.Errorf("%w: %s", ErrRetriesExhaust, investmentID)
		}
	}
}

func (u *Usecase) confirmOnce(ctx context.Context, investmentID string) (*InvestmentDTO, error) {
	var (
		dto *InvestmentDTO
		evs []event.Event
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		inv, err := r.Investments.GetByInvestmentID(ctx, investmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return investment.ErrNotFound
			}
			return err
		}
		switch inv.Status {
		case investment.StatusPending:
		case investment.StatusConfirmed:
			return investment.ErrAlreadyFinal
		default:
			return investment.ErrNotPending
		}

		l, err := r.Loans.GetByID(ctx, inv.LoanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanGone
			}
			return err
		}

		newFunded := l.FundedPct + inv.Amount/l.Principal*100
		if newFunded > 100+loan.PercentTolerance {
			return fmt.Errorf("%w: funded would reach %.4f%%", ErrCapacityExceeded, newFunded)
		}

		now := u.now()
		if inv.Kind == investment.KindFanout {
			book, err := u.loadRepaidBook(ctx, r, inv)
			if err != nil {
				return err
			}
			if err := u.expandFanout(ctx, r, l, inv, book, now); err != nil {
				return err
			}
		} else {
			inv.Status = investment.StatusConfirmed
			inv.ConfirmedAt = &now
			if err := r.Investments.Save(ctx, inv); err != nil {
				return err
			}
		}

		l.FundedPct = clampPct(newFunded)
		if l.FullyFunded() && l.Status == loan.StatusFundraising {
			l.Status = loan.StatusFunded
			l.StatusUpdatedAt = now
		}
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return err
		}

		dto = investmentDTO(inv, l.LoanID)
		evs = u.ledgerEvents(l, inv, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	return dto, nil
}

// repaidBook is the repaid loan's full history, loaded up front so every
// read in a confirm transaction happens before the first write.
type repaidBook struct {
	loan *loan.Loan
	invs []investment.Investment
	pays []payment.Payment
}

func (u *Usecase) loadRepaidBook(ctx context.Context, r uow.Repos, inv *investment.Investment) (*repaidBook, error) {
	if inv.RepaidLoanID == nil {
		return nil, nil
	}
	repaid, err := r.Loans.GetByID(ctx, *inv.RepaidLoanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanGone
		}
		return nil, err
	}
	invs, err := r.Investments.ListByLoanIDAndStatus(ctx, repaid.ID, investment.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	pays, err := r.Payments.ListByLoanID(ctx, repaid.ID)
	if err != nil {
		return nil, err
	}
	return &repaidBook{loan: repaid, invs: invs, pays: pays}, nil
}

// expandFanout replaces the placeholder with one confirmed investment per
// source, amount-weighted, and books the matching payment on the repaid loan.
func (u *Usecase) expandFanout(ctx context.Context, r uow.Repos, l *loan.Loan, inv *investment.Investment, book *repaidBook, now time.Time) error {
	if len(inv.Sources) == 0 {
		return investment.ErrNoSources
	}
	srcTotal := inv.SourceTotal()
	if srcTotal <= 0 {
		return investment.ErrNoSources
	}

	allocated := 0.0
	for idx, s := range inv.Sources {
		share := round2(inv.Amount * s.Amount / srcTotal)
		if idx == len(inv.Sources)-1 {
			// Remainder goes to the last source so slices sum exactly.
			share = round2(inv.Amount - allocated)
		}
		allocated = round2(allocated + share)

		child := &investment.Investment{
			InvestmentID: id.NewID32(),
			LoanID:       l.ID,
			InvestorID:   s.InvestorID,
			Amount:       share,
			Kind:         investment.KindDirect,
			Status:       investment.StatusConfirmed,
			CreatedAt:    now,
			ConfirmedAt:  &now,
		}
		if err := r.Investments.Create(ctx, child); err != nil {
			return err
		}
	}

	if book != nil {
		if _, err := u.writePayment(ctx, r, book.loan, book.invs, book.pays, inv.InvestorID, now, inv.Amount); err != nil {
			return err
		}
	}

	return r.Investments.Delete(ctx, inv)
}

// Reject rolls back a pending investment's committed contribution exactly
// once and parks it as rejected.
func (u *Usecase) Reject(ctx context.Context, investmentID string) (*InvestmentDTO, error) {
	return u.rollback(ctx, investmentID, investment.StatusRejected)
}

// Dispute is Reject's administrative sibling; same rollback semantics.
func (u *Usecase) Dispute(ctx context.Context, investmentID string) (*InvestmentDTO, error) {
	return u.rollback(ctx, investmentID, investment.StatusDisputed)
}

func (u *Usecase) rollback(ctx context.Context, investmentID string, to investment.Status) (*InvestmentDTO, error) {
	var (
		dto *InvestmentDTO
		evs []event.Event
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		inv, err := r.Investments.GetByInvestmentID(ctx, investmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return investment.ErrNotFound
			}
			return err
		}
		// The pending guard is what makes the rollback exactly-once: any
		// second attempt, whatever the path, finds a non-pending record.
		if inv.Status != investment.StatusPending {
			return investment.ErrNotPending
		}
		l, err := r.Loans.GetByID(ctx, inv.LoanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanGone
			}
			return err
		}

		now := u.now()
		inv.Status = to
		if err := r.Investments.Save(ctx, inv); err != nil {
			return err
		}
		l.CommittedPct = clampPct(l.CommittedPct - inv.Amount/l.Principal*100)
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return err
		}

		dto = investmentDTO(inv, l.LoanID)
		evs = u.ledgerEvents(l, inv, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	return dto, nil
}

func loadLoan(ctx context.Context, r uow.Repos, loanID string) (*loan.Loan, error) {
	l, err := r.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func clampPct(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

func (u *Usecase) ledgerEvents(l *loan.Loan, inv *investment.Investment, now time.Time) []event.Event {
	led := event.New(event.TypeLedgerChanged, l.LoanID, now)
	led.Ledger = &event.LedgerChange{
		CommittedPct: l.CommittedPct,
		FundedPct:    l.FundedPct,
		Status:       string(l.Status),
	}
	ch := event.New(event.TypeInvestmentChanged, l.LoanID, now)
	ch.Investment = &event.InvestmentChange{
		InvestmentID: inv.InvestmentID,
		InvestorID:   inv.InvestorID,
		Amount:       inv.Amount,
		Status:       string(inv.Status),
	}
	return []event.Event{led, ch}
}

func (u *Usecase) publish(ctx context.Context, evs []event.Event) {
	for _, ev := range evs {
		u.pub.Publish(ctx, ev)
	}
}
