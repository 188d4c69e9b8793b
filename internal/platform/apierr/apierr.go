// Package apierr maps service errors onto HTTP responses.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"

	"github.com/followup/followup/pkg/validation"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// NotFound wraps ErrNotFound with the entity and id that were missing.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// ToHTTP converts err into an *echo.HTTPError. Errors that already are
// HTTP errors pass through unchanged.
func ToHTTP(err error) error {
	if err == nil {
		return nil
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "validation failed",
			"fields":  verrs,
		})
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConfirmationRequired):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return echo.NewHTTPError(http.StatusConflict, pgErr.Message)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, pgErr.Message)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
