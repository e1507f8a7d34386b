package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLedgerChanged      Type = "ledger.changed"
	TypeInvestmentChanged  Type = "investment.changed"
	TypePaymentRecorded    Type = "payment.recorded"
	TypeReservationChanged Type = "reservation.changed"
)

// LedgerChange mirrors the loan's funding snapshot after a committed write.
type LedgerChange struct {
	CommittedPct float64 `json:"committed_pct"`
	FundedPct    float64 `json:"funded_pct"`
	Status       string  `json:"status"`
}

type InvestmentChange struct {
	InvestmentID string  `json:"investment_id"`
	InvestorID   string  `json:"investor_id"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
}

type PaymentChange struct {
	PaymentID string  `json:"payment_id"`
	PayerID   string  `json:"payer_id"`
	Total     float64 `json:"total"`
}

type ReservationChange struct {
	InvestorID string  `json:"investor_id"`
	Amount     float64 `json:"amount"`
	Cancelled  bool    `json:"cancelled"`
}

// Event is the envelope pushed to subscribers on every observable state
// transition. Exactly one payload pointer is set, matching Type.
type Event struct {
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	LoanID string    `json:"loan_id"`
	At     time.Time `json:"at"`

	Ledger      *LedgerChange      `json:"ledger,omitempty"`
	Investment  *InvestmentChange  `json:"investment,omitempty"`
	Payment     *PaymentChange     `json:"payment,omitempty"`
	Reservation *ReservationChange `json:"reservation,omitempty"`
}

func New(t Type, loanID string, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, LoanID: loanID, At: at}
}

// Publisher delivers events after the originating transaction committed.
// Delivery is best-effort; the ledger itself stays the source of truth.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Nop discards events; used where no subscriber surface is wired.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
