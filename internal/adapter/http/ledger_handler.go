package http

import (
	"net/http"
	"time"

	"p2p-funding-core/internal/amortization"
	"p2p-funding-core/internal/usecase/funding"

	"github.com/labstack/echo/v4"
)

// LedgerHandler serves the read-side views (schedule, payoff, participation)
// and the borrower payment intake.
type LedgerHandler struct {
	uc          *funding.Usecase
	platformCut float64
}

func NewLedgerHandler(uc *funding.Usecase, platformCut float64) *LedgerHandler {
	if platformCut <= 0 {
		platformCut = amortization.DefaultPlatformCut
	}
	return &LedgerHandler{uc: uc, platformCut: platformCut}
}

func (h *LedgerHandler) GetSchedule(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	asOf, err := asOfParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "as_of must be RFC3339"})
	}
	dto, err := h.uc.GetSchedule(c.Request().Context(), loanID, asOf)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LedgerHandler) GetPayoff(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	asOf, err := asOfParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "as_of must be RFC3339"})
	}
	dto, err := h.uc.GetPayoff(c.Request().Context(), loanID, asOf)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// GetParticipation returns the confirmed funders' time-weighted fractions;
// with ?investor_id= it also includes that investor's per-installment rows.
func (h *LedgerHandler) GetParticipation(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	investorID := c.QueryParam("investor_id")
	if investorID != "" && !reHex32.MatchString(investorID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid investor_id"})
	}
	asOf, err := asOfParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "as_of must be RFC3339"})
	}
	dto, err := h.uc.GetParticipation(c.Request().Context(), loanID, investorID, asOf, h.platformCut)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type recordPaymentReq struct {
	PayerID string  `json:"payer_id" validate:"required,hex32"`
	Total   float64 `json:"total"    validate:"required,gt=0,dec2"`
	// Optional; defaults to now. RFC3339.
	PaidAt string `json:"paid_at"  validate:"omitempty"`
}

func (h *LedgerHandler) RecordPayment(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	var req recordPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	paidAt := time.Now().UTC()
	if req.PaidAt != "" {
		t, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "paid_at must be RFC3339"})
		}
		paidAt = t.UTC()
	}
	dto, err := h.uc.RecordPayment(c.Request().Context(), loanID, req.PayerID, paidAt, req.Total)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}
