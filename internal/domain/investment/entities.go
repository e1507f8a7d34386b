package investment

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("investment not found")
	ErrAlreadyFinal = errors.New("investment already confirmed")
	ErrNotPending   = errors.New("investment is not pending confirmation")
	ErrNoSources    = errors.New("fan-out investment has no sources")
)

type Status string

const (
	StatusPending   Status = "pending-confirmation"
	StatusConfirmed Status = "confirmed"
	StatusDisputed  Status = "disputed"
	StatusRejected  Status = "rejected"
)

// Kind separates fresh capital from a borrower repayment being redistributed
// back to the original funders.
type Kind string

const (
	KindDirect Kind = "direct"
	KindFanout Kind = "fanout"
)

// Source is one original funder's slice of a fan-out amount.
type Source struct {
	InvestorID string  `json:"investor_id"`
	Amount     float64 `json:"amount"`
}

// Sources is stored as a JSON column; empty for direct investments.
type Sources []Source

func (s Sources) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *Sources) Scan(v any) error {
	if v == nil {
		*s = nil
		return nil
	}
	switch b := v.(type) {
	case []byte:
		return json.Unmarshal(b, s)
	case string:
		return json.Unmarshal([]byte(b), s)
	default:
		return fmt.Errorf("sources: unsupported scan type %T", v)
	}
}

type Investment struct {
	ID           uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	InvestmentID string `gorm:"column:investment_id;type:char(32);not null;uniqueIndex:ux_investments_public_id" json:"investment_id"`
	// Numeric FK to loans.id.
	LoanID     uint64 `gorm:"column:loan_id;not null;index" json:"-"`
	InvestorID string `gorm:"column:investor_id;type:char(32);not null;index" json:"investor_id"`

	Amount float64 `gorm:"type:decimal(18,2)" json:"amount"`
	Kind   Kind    `gorm:"type:enum('direct','fanout');default:'direct'" json:"kind"`
	Status Status  `gorm:"type:enum('pending-confirmation','confirmed','disputed','rejected');default:'pending-confirmation'" json:"status"`

	// Fan-out only: the funders owed this repayment, and the loan it repays.
	Sources      Sources `gorm:"column:sources;type:json" json:"sources,omitempty"`
	RepaidLoanID *uint64 `gorm:"column:repaid_loan_id" json:"-"`

	// CreatedAt doubles as the interest-accrual anchor.
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ConfirmedAt *time.Time     `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Investment) TableName() string { return "investments" }

// Anchor is the instant interest starts accruing for this investment.
func (i *Investment) Anchor() time.Time { return i.CreatedAt }

// SourceTotal sums the fan-out source amounts.
func (i *Investment) SourceTotal() float64 {
	var t float64
	for _, s := range i.Sources {
		t += s.Amount
	}
	return t
}
