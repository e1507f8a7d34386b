package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	loanDomain "p2p-funding-core/internal/domain/loan"
	resDomain "p2p-funding-core/internal/domain/reservation"
	"p2p-funding-core/internal/testutil/loanmock"
	"p2p-funding-core/internal/testutil/resmem"
	uc "p2p-funding-core/internal/usecase/reservation"
)

func reservationUsecase(l *loanDomain.Loan, store resDomain.Store) *uc.Usecase {
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*loanDomain.Loan, error) { return l, nil },
	}
	return uc.NewUsecase(loans, store, nil, 0)
}

func TestReserve_Success(t *testing.T) {
	e := newEchoWithValidator()
	l := &loanDomain.Loan{LoanID: testLoanID, Principal: 500_000, Status: loanDomain.StatusFundraising}
	h := NewReservationHandler(reservationUsecase(l, resmem.New()))

	body := map[string]any{"investor_id": testInvestorID, "amount": 100000}
	req := httptest.NewRequest(stdhttp.MethodPost, "/loans/"+testLoanID+"/reservations", mustJSON(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(testLoanID)

	if err := h.Reserve(c); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var dto uc.ReservationDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.Amount != 100000 || !dto.ExpiresAt.After(dto.ReservedAt) {
		t.Fatalf("unexpected dto: %+v", dto)
	}
}

func TestReserve_ExceedsAvailabilityIsConflict(t *testing.T) {
	e := newEchoWithValidator()
	l := &loanDomain.Loan{LoanID: testLoanID, Principal: 500_000, CommittedPct: 90}
	h := NewReservationHandler(reservationUsecase(l, resmem.New()))

	body := map[string]any{"investor_id": testInvestorID, "amount": 100000}
	req := httptest.NewRequest(stdhttp.MethodPost, "/loans/"+testLoanID+"/reservations", mustJSON(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(testLoanID)

	if err := h.Reserve(c); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelReservation_NoContent(t *testing.T) {
	e := newEchoWithValidator()
	l := &loanDomain.Loan{LoanID: testLoanID, Principal: 500_000}
	store := resmem.New()
	h := NewReservationHandler(reservationUsecase(l, store))

	req := httptest.NewRequest(stdhttp.MethodDelete,
		"/loans/"+testLoanID+"/reservations/"+testInvestorID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id", "investor_id")
	c.SetParamValues(testLoanID, testInvestorID)

	if err := h.Cancel(c); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestListReservations(t *testing.T) {
	e := newEchoWithValidator()
	l := &loanDomain.Loan{LoanID: testLoanID, Principal: 500_000}
	store := resmem.New()
	usecase := reservationUsecase(l, store)
	h := NewReservationHandler(usecase)

	// Seed a hold through the usecase so its shape matches production.
	if _, err := usecase.Reserve(context.Background(), testLoanID, testInvestorID, 100_000); err != nil {
		t.Fatalf("seed Reserve: %v", err)
	}

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans/"+testLoanID+"/reservations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(testLoanID)

	if err := h.List(c); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var dto uc.AvailabilityDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.Available != 400_000 || len(dto.Reservations) != 1 {
		t.Fatalf("unexpected availability: %+v", dto)
	}
}

func TestReserve_BadLoanID(t *testing.T) {
	e := newEchoWithValidator()
	h := NewReservationHandler(reservationUsecase(&loanDomain.Loan{}, resmem.New()))

	body := map[string]any{"investor_id": testInvestorID, "amount": 1000}
	req := httptest.NewRequest(stdhttp.MethodPost, "/loans/OOPS/reservations", mustJSON(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues(strings.ToUpper(testLoanID))

	if err := h.Reserve(c); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
