package http

import (
	"context"
	"net/http"

	invDomain "p2p-funding-core/internal/domain/investment"
	"p2p-funding-core/internal/usecase/funding"

	"github.com/labstack/echo/v4"
)

type InvestmentHandler struct{ uc *funding.Usecase }

func NewInvestmentHandler(uc *funding.Usecase) *InvestmentHandler {
	return &InvestmentHandler{uc: uc}
}

type createInvestmentReq struct {
	InvestorID string  `json:"investor_id" validate:"required,hex32"`
	Amount     float64 `json:"amount"      validate:"required,gt=0,dec2"`
}

// CreateInvestment books pending capital against the loan's ledger. Any
// reservation the investor held is consumed; holding one is not required.
func (h *InvestmentHandler) CreateInvestment(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	var req createInvestmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.CreatePending(c.Request().Context(), loanID, req.InvestorID, req.Amount)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type fanoutSourceReq struct {
	InvestorID string  `json:"investor_id" validate:"required,hex32"`
	Amount     float64 `json:"amount"      validate:"required,gt=0,dec2"`
}

type createFanoutReq struct {
	RepaidLoanID string            `json:"repaid_loan_id" validate:"required,hex32"`
	PayerID      string            `json:"payer_id"       validate:"required,hex32"`
	Sources      []fanoutSourceReq `json:"sources"        validate:"required,min=1,dive"`
}

// CreateFanout books a borrower repayment on one loan as pending reinvested
// capital on another, split across the original funders.
func (h *InvestmentHandler) CreateFanout(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	var req createFanoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	sources := make([]invDomain.Source, 0, len(req.Sources))
	for _, s := range req.Sources {
		sources = append(sources, invDomain.Source{InvestorID: s.InvestorID, Amount: s.Amount})
	}
	dto, err := h.uc.CreateFanout(c.Request().Context(), loanID, req.RepaidLoanID, req.PayerID, sources)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *InvestmentHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.uc.Confirm)
}

func (h *InvestmentHandler) Reject(c echo.Context) error {
	return h.transition(c, h.uc.Reject)
}

func (h *InvestmentHandler) Dispute(c echo.Context) error {
	return h.transition(c, h.uc.Dispute)
}

func (h *InvestmentHandler) transition(c echo.Context, fn func(ctx context.Context, investmentID string) (*funding.InvestmentDTO, error)) error {
	investmentID := c.Param("investment_id")
	if !reHex32.MatchString(investmentID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid investment_id"})
	}
	dto, err := fn(c.Request().Context(), investmentID)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
