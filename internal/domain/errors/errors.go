package errors

import (
	"errors"
	"fmt"
)

// Re-export the standard library helpers so callers only import one package.
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error codes for billing operations.
const (
	CodeInternal        = "INTERNAL"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeValidation      = "VALIDATION"
	CodeNotFound        = "NOT_FOUND"
	CodePrecondition    = "PRECONDITION_FAILED"
	CodeAlreadyExtended = "TRIAL_ALREADY_EXTENDED"
	CodeExternalService = "EXTERNAL_SERVICE"
	CodeSignature       = "INVALID_SIGNATURE"
)

// AppError carries an error code alongside the message and the wrapped cause.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

// Message returns the caller-safe message without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// Is matches two AppErrors by code, so wrapped variants of a sentinel still
// compare equal under errors.Is.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.code == appErr.code && e.message == appErr.message
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// Wrap wraps err with an EXTERNAL_SERVICE code unless it already carries a
// code, in which case the code is preserved.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}

	return NewAppError(CodeExternalService, message, err)
}

// External wraps a processor or store failure, preserving the cause for logs
// while hiding the raw transport error from callers.
func External(message string, err error) error {
	return NewAppError(CodeExternalService, message, err)
}

// CodeOf extracts the error code, defaulting to INTERNAL.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message. Errors without a code are
// reported generically so transport and SQL details never reach clients.
func MessageOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Message()
	}
	return "internal error"
}

// Well-known billing errors.
var (
	// ErrAccountNotFound indicates the target account does not exist locally
	ErrAccountNotFound = NewAppError(CodeNotFound, "account not found", nil)

	// ErrPlanNotFound indicates that a price id has no catalog entry; it is
	// never substituted with a default plan
	ErrPlanNotFound = NewAppError(CodeNotFound, "no plan registered for price", nil)

	// ErrNoSubscription indicates the account has no subscription to operate on
	ErrNoSubscription = NewAppError(CodePrecondition, "account has no subscription", nil)

	// ErrNoCustomer indicates the account has no payment processor customer yet
	ErrNoCustomer = NewAppError(CodePrecondition, "account has no payment customer", nil)

	// ErrNotCancelPending indicates reactivation was requested without a
	// pending cancellation
	ErrNotCancelPending = NewAppError(CodePrecondition, "subscription is not pending cancellation", nil)

	// ErrNotTrialing indicates a trial-only operation on a non-trialing subscription
	ErrNotTrialing = NewAppError(CodePrecondition, "subscription is not in a trial", nil)

	// ErrNoTrialEnd indicates the processor reports no trial bound to extend
	ErrNoTrialEnd = NewAppError(CodePrecondition, "subscription has no trial end", nil)

	// ErrTrialAlreadyExtended enforces the one-shot trial extension
	ErrTrialAlreadyExtended = NewAppError(CodeAlreadyExtended, "trial has already been extended", nil)

	// ErrInvalidSignature indicates webhook authenticity verification failed
	ErrInvalidSignature = NewAppError(CodeSignature, "webhook signature verification failed", nil)
)
