package loanbook

import (
	"context"
	"errors"
	"testing"
	"time"

	"p2p-funding-core/internal/domain/loan"
	"p2p-funding-core/internal/domain/reservation"
	"p2p-funding-core/internal/testutil/loanmock"
	"p2p-funding-core/internal/testutil/resmem"

	"gorm.io/gorm"
)

const borrower = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

func validInput() CreateLoanInput {
	return CreateLoanInput{
		BorrowerID:     borrower,
		Principal:      500_000,
		TermMonths:     12,
		MonthlyRate:    0.021,
		MonthlyTechFee: 2_500,
		PaymentDay:     10,
	}
}

func TestCreate(t *testing.T) {
	var created *loan.Loan
	loans := &loanmock.Repo{
		GetFundraisingByBorrowerIDFn: func(context.Context, string) (*loan.Loan, error) {
			return nil, gorm.ErrRecordNotFound
		},
		CreateFn: func(_ context.Context, l *loan.Loan) error {
			created = l
			return nil
		},
	}
	u := NewUsecase(loans, resmem.New())

	dto, err := u.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created == nil || created.Status != loan.StatusFundraising {
		t.Fatalf("unexpected persisted loan: %+v", created)
	}
	if len(dto.LoanID) != 32 {
		t.Fatalf("loan id = %q", dto.LoanID)
	}
	if dto.AmountToFund != 500_000 {
		t.Fatalf("amount to fund = %v, want full principal", dto.AmountToFund)
	}
}

func TestCreate_BlocksSecondFundraisingLoan(t *testing.T) {
	loans := &loanmock.Repo{
		GetFundraisingByBorrowerIDFn: func(context.Context, string) (*loan.Loan, error) {
			return &loan.Loan{LoanID: "cccccccccccccccccccccccccccccccc"}, nil
		},
	}
	u := NewUsecase(loans, resmem.New())

	if _, err := u.Create(context.Background(), validInput()); !errors.Is(err, loan.ErrBorrowerHasActive) {
		t.Fatalf("err = %v, want ErrBorrowerHasActive", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	u := NewUsecase(&loanmock.Repo{}, resmem.New())
	bad := []CreateLoanInput{
		func() CreateLoanInput { in := validInput(); in.BorrowerID = "nope"; return in }(),
		func() CreateLoanInput { in := validInput(); in.Principal = 0; return in }(),
		func() CreateLoanInput { in := validInput(); in.TermMonths = 0; return in }(),
		func() CreateLoanInput { in := validInput(); in.PaymentDay = 31; return in }(),
	}
	for idx, in := range bad {
		if _, err := u.Create(context.Background(), in); !errors.Is(err, loan.ErrInvalidTerms) {
			t.Errorf("case %d: err = %v, want ErrInvalidTerms", idx, err)
		}
	}
}

func TestGet_NetsOutActiveReservations(t *testing.T) {
	l := &loan.Loan{
		LoanID:       "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		BorrowerID:   borrower,
		Principal:    500_000,
		CommittedPct: 20,
		Status:       loan.StatusFundraising,
	}
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*loan.Loan, error) { return l, nil },
	}
	store := resmem.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = store.Put(context.Background(), &reservation.Reservation{
		LoanID: l.LoanID, InvestorID: "11111111111111111111111111111111",
		Amount: 50_000, ReservedAt: now, ExpiresAt: now.Add(time.Minute),
	})
	u := NewUsecase(loans, store).WithClock(func() time.Time { return now })

	dto, err := u.Get(context.Background(), l.LoanID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// 80% of 500k uncommitted, minus the 50k hold.
	if dto.AmountToFund != 350_000 {
		t.Fatalf("amount to fund = %v, want 350000", dto.AmountToFund)
	}
}

func TestGet_NotFound(t *testing.T) {
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*loan.Loan, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	u := NewUsecase(loans, resmem.New())
	if _, err := u.Get(context.Background(), "ffffffffffffffffffffffffffffffff"); !errors.Is(err, loan.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
