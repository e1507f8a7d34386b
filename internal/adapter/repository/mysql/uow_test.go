package mysql

import (
	"context"
	"errors"
	"testing"

	"p2p-funding-core/internal/domain/uow"
	"p2p-funding-core/pkg/id"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openUowTestDB migrates all three tables, so UoW can orchestrate the repos.
func openUowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&loanSQLite{}, &investmentSQLite{}, &paymentSQLite{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := openUowTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)
	invRepo := NewInvestmentRepository(db)

	loanID := id.NewID32()
	invID := ""
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		l := makeLoan(loanID, id.NewID32())
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if l.ID == 0 {
			t.Fatalf("loan auto ID not set")
		}
		inv := makeInvestment(l.ID, "11111111111111111111111111111111", 100_000)
		invID = inv.InvestmentID
		return r.Investments.Create(ctx, inv)
	})
	if err != nil {
		t.Fatalf("WithinTx commit err: %v", err)
	}

	if _, err := loanRepo.GetByLoanID(ctx, loanID); err != nil {
		t.Fatalf("loan not visible after commit: %v", err)
	}
	if _, err := invRepo.GetByInvestmentID(ctx, invID); err != nil {
		t.Fatalf("investment not visible after commit: %v", err)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := openUowTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	loanID := id.NewID32()
	wantErr := errors.New("boom")

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		l := makeLoan(loanID, id.NewID32())
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if err := r.Investments.Create(ctx, makeInvestment(l.ID, "22222222222222222222222222222222", 10_000)); err != nil {
			return err
		}
		return wantErr // force rollback
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithinTx err = %v, want %v", err, wantErr)
	}

	if _, err := loanRepo.GetByLoanID(ctx, loanID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected rollback, loan lookup err = %v", err)
	}
	var n int64
	if err := db.Model(&investmentSQLite{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("investments leaked past rollback: %d rows", n)
	}
}

func TestGormUoW_VersionConflictInsideTx(t *testing.T) {
	db := openUowTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	l := makeLoan(id.NewID32(), id.NewID32())
	if err := loanRepo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Another writer bumps the version before our tx writes.
	raced := *l
	raced.CommittedPct = 10
	if err := loanRepo.SaveVersioned(ctx, &raced); err != nil {
		t.Fatalf("racing SaveVersioned: %v", err)
	}

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		stale := *l
		stale.CommittedPct = 90
		return r.Loans.SaveVersioned(ctx, &stale)
	})
	if !errors.Is(err, uow.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	got, _ := loanRepo.GetByLoanID(ctx, l.LoanID)
	if got.CommittedPct != 10 {
		t.Fatalf("stale tx write leaked: committed = %v", got.CommittedPct)
	}
}
