package loan

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("loan not found")
	ErrBorrowerHasActive = errors.New("borrower already has a fundraising loan")
	ErrInvalidTerms      = errors.New("invalid loan terms")
)

type Status string

const (
	StatusFundraising Status = "fundraising"
	StatusFunded      Status = "funded"
	StatusOverdue     Status = "overdue"
	StatusSettled     Status = "settled"
)

// PercentTolerance bounds float drift on committed/funded percentages.
// Invariant: 0 <= funded <= committed <= 100, each side within this slack.
const PercentTolerance = 0.01

type Loan struct {
	ID         uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID     string `gorm:"size:32;uniqueIndex:ux_loans_loan_id_active" json:"loan_id"`
	BorrowerID string `gorm:"size:32;index:idx_loans_borrower_active" json:"borrower_id"`

	Principal       float64 `gorm:"type:decimal(18,2)" json:"principal"`
	TermMonths      int     `gorm:"column:term_months" json:"term_months"`
	MonthlyRate     float64 `gorm:"type:decimal(8,6);column:monthly_rate" json:"monthly_rate"`
	DisbursementFee float64 `gorm:"type:decimal(18,2);column:disbursement_fee" json:"disbursement_fee"`
	MonthlyTechFee  float64 `gorm:"type:decimal(18,2);column:monthly_tech_fee" json:"monthly_tech_fee"`
	// Day of month each installment falls due (1..28 to dodge short months).
	PaymentDay int `gorm:"column:payment_day" json:"payment_day"`

	Status       Status  `gorm:"type:enum('fundraising','funded','overdue','settled');default:'fundraising'" json:"status"`
	CommittedPct float64 `gorm:"type:decimal(7,4);column:committed_pct" json:"committed_pct"`
	FundedPct    float64 `gorm:"type:decimal(7,4);column:funded_pct" json:"funded_pct"`

	// Bumped on every ledger write; stale writers lose (optimistic lock).
	Version uint64 `gorm:"column:version;default:0" json:"-"`

	StatusUpdatedAt time.Time      `gorm:"autoCreateTime" json:"status_updated_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// AmountToFund is the principal slice not yet promised by pending or
// confirmed investments.
func (l *Loan) AmountToFund() float64 {
	return l.Principal * (1 - l.CommittedPct/100)
}

// FullyFunded reports whether confirmed money covers the whole principal.
func (l *Loan) FullyFunded() bool {
	return l.FundedPct >= 100-PercentTolerance
}
