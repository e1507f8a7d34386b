package http

import (
	"errors"
	"net/http"
	"time"

	"p2p-funding-core/internal/amortization"
	invDomain "p2p-funding-core/internal/domain/investment"
	loanDomain "p2p-funding-core/internal/domain/loan"
	resDomain "p2p-funding-core/internal/domain/reservation"
	"p2p-funding-core/internal/usecase/funding"

	"github.com/labstack/echo/v4"
)

// statusFor maps domain errors to HTTP codes; anything unmapped is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, loanDomain.ErrNotFound),
		errors.Is(err, invDomain.ErrNotFound),
		errors.Is(err, resDomain.ErrNotFound),
		errors.Is(err, funding.ErrLoanGone):
		return http.StatusNotFound
	case errors.Is(err, loanDomain.ErrBorrowerHasActive),
		errors.Is(err, invDomain.ErrAlreadyFinal),
		errors.Is(err, invDomain.ErrNotPending),
		errors.Is(err, funding.ErrCapacityExceeded),
		errors.Is(err, resDomain.ErrExceedsAvailability):
		return http.StatusConflict
	case errors.Is(err, loanDomain.ErrInvalidTerms),
		errors.Is(err, invDomain.ErrNoSources),
		errors.Is(err, funding.ErrInvalidAmount),
		errors.Is(err, resDomain.ErrInvalidAmount),
		errors.Is(err, amortization.ErrNoConfirmedCapital):
		return http.StatusUnprocessableEntity
	case errors.Is(err, funding.ErrRetriesExhaust):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

// asOfParam reads an optional ?as_of=RFC3339 query, defaulting to now.
func asOfParam(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
