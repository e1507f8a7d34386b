package http

import (
	"net/http"

	"p2p-funding-core/internal/usecase/loanbook"

	"github.com/labstack/echo/v4"
)

type LoanHandler struct{ uc *loanbook.Usecase }

func NewLoanHandler(uc *loanbook.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type createLoanReq struct {
	BorrowerID      string  `json:"borrower_id"      validate:"required,hex32"`
	Principal       float64 `json:"principal"        validate:"required,gt=0,dec2"`
	TermMonths      int     `json:"term_months"      validate:"required,gte=1,lte=360"`
	MonthlyRate     float64 `json:"monthly_rate"     validate:"gte=0,lte=1"`
	DisbursementFee float64 `json:"disbursement_fee" validate:"gte=0,dec2"`
	MonthlyTechFee  float64 `json:"monthly_tech_fee" validate:"gte=0,dec2"`
	PaymentDay      int     `json:"payment_day"      validate:"required,gte=1,lte=28"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Create(c.Request().Context(), loanbook.CreateLoanInput(req))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	dto, err := h.uc.Get(c.Request().Context(), loanID)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
