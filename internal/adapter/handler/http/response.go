package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
)

// Validator adapts go-playground/validator to Echo's Validator interface
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a request validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return apperrors.NewAppError(apperrors.CodeValidation, "request validation failed", err)
	}
	return nil
}

// respondError writes the JSON error body for err using its code's HTTP
// status. Server-side failures are logged at error level, caller mistakes at
// warn.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	status := apperrors.StatusOf(err)
	code := apperrors.CodeOf(err)

	fields := []zap.Field{
		zap.String("path", c.Request().URL.Path),
		zap.String("code", code),
		zap.Error(err),
	}
	if status >= 500 {
		logger.Error("Request failed", fields...)
	} else {
		logger.Warn("Request rejected", fields...)
	}

	return c.JSON(status, echo.Map{
		"error": apperrors.MessageOf(err),
		"code":  code,
	})
}
