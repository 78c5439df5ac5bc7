package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestTimeout = 10 * time.Second
	batchTimeout   = 5 * time.Minute
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c echo.Context, msg string, err error) error {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "path", c.Path(), "error", err)
		return c.JSON(status, ResponseError{Message: http.StatusText(status)})
	}
	logger.Debug(msg, "path", c.Path(), "status", status, "error", err)
	return c.JSON(status, ResponseError{Message: err.Error()})
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
}

// bindAndValidate binds the request into dst and runs struct validation.
func bindAndValidate(c echo.Context, v *validator.Validate, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return domain.NewValidationError("body", err.Error())
	}
	if err := v.Struct(dst); err != nil {
		return domain.NewValidationError("", err.Error())
	}
	return nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a valid uuid")
	}
	return id, nil
}

func listParams(c echo.Context) (domain.ListParams, error) {
	var p domain.ListParams
	if err := echo.QueryParamsBinder(c).
		Int("offset", &p.Offset).
		Int("limit", &p.Limit).
		BindError(); err != nil {
		return p, domain.NewValidationError("pagination", err.Error())
	}
	return p.Normalize(), nil
}

// timeQuery accepts RFC3339 timestamps or plain dates.
func timeQuery(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, domain.DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.NewValidationError(name, "must be RFC3339 or YYYY-MM-DD")
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func batchContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), batchTimeout)
}
