package http

import (
	"net/http"

	"p2p-funding-core/internal/usecase/reservation"

	"github.com/labstack/echo/v4"
)

type ReservationHandler struct{ uc *reservation.Usecase }

func NewReservationHandler(uc *reservation.Usecase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

type reserveReq struct {
	InvestorID string  `json:"investor_id" validate:"required,hex32"`
	Amount     float64 `json:"amount"      validate:"required,gt=0,dec2"`
}

func (h *ReservationHandler) Reserve(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Reserve(c.Request().Context(), loanID, req.InvestorID, req.Amount)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ReservationHandler) Cancel(c echo.Context) error {
	loanID, investorID := c.Param("loan_id"), c.Param("investor_id")
	if !reHex32.MatchString(loanID) || !reHex32.MatchString(investorID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid path params"})
	}
	if err := h.uc.Cancel(c.Request().Context(), loanID, investorID); err != nil {
		return errJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReservationHandler) List(c echo.Context) error {
	loanID := c.Param("loan_id")
	if !reHex32.MatchString(loanID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id"})
	}
	dto, err := h.uc.List(c.Request().Context(), loanID)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
