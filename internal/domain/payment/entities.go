package payment

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("payment not found")

// Payment is one borrower remittance with its decomposition. The parts are
// fixed at intake time against the schedule then current; the schedule only
// annotates rows with them afterwards.
type Payment struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	PaymentID string `gorm:"column:payment_id;type:char(32);not null;uniqueIndex:ux_payments_public_id" json:"payment_id"`
	LoanID    uint64 `gorm:"column:loan_id;not null;index" json:"-"`
	PayerID   string `gorm:"column:payer_id;type:char(32);not null" json:"payer_id"`

	PaidAt   time.Time `gorm:"column:paid_at;not null" json:"paid_at"`
	Total    float64   `gorm:"type:decimal(18,2)" json:"total"`
	Capital  float64   `gorm:"type:decimal(18,2)" json:"capital"`
	Interest float64   `gorm:"type:decimal(18,2)" json:"interest"`
	TechFee  float64   `gorm:"column:tech_fee;type:decimal(18,2)" json:"tech_fee"`
	LateFee  float64   `gorm:"column:late_fee;type:decimal(18,2)" json:"late_fee"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Payment) TableName() string { return "payments" }
