package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error. Handlers translate kinds into transport statuses;
// nothing below the handler layer knows about HTTP.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindFrozen            Kind = "frozen"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindService           Kind = "service"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrFrozen indicates that the operation touched a frozen account.
var ErrFrozen = errors.New("account is frozen")

// ErrInsufficientFunds indicates that the debited account balance is below the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnauthorized indicates that the caller could not be authenticated.
var ErrUnauthorized = errors.New("unauthorized")

// ErrService indicates a storage or infrastructure fault rather than a business rule.
var ErrService = errors.New("service error")

var sentinels = map[Kind]error{
	KindValidation:        ErrValidation,
	KindNotFound:          ErrNotFound,
	KindFrozen:            ErrFrozen,
	KindInsufficientFunds: ErrInsufficientFunds,
	KindConflict:          ErrDuplicate,
	KindUnauthorized:      ErrUnauthorized,
	KindService:           ErrService,
}

// AppError is the tagged error returned by services and repositories.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
	// Transient marks service errors (timeouts, dropped connections) that a caller may retry.
	Transient bool
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is lets errors.Is match an AppError against the sentinel of its kind.
func (e *AppError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// NewAppError builds an AppError of the given kind.
func NewAppError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewValidationError(format string, args ...any) *AppError {
	return NewAppError(KindValidation, fmt.Sprintf(format, args...), nil)
}

func NewNotFoundError(what string) *AppError {
	return NewAppError(KindNotFound, what+" not found", nil)
}

func NewFrozenError(accountID string) *AppError {
	return NewAppError(KindFrozen, fmt.Sprintf("account %s is frozen", accountID), nil)
}

func NewInsufficientFundsError(accountID string) *AppError {
	return NewAppError(KindInsufficientFunds, fmt.Sprintf("insufficient funds in account %s", accountID), nil)
}

func NewConflictError(message string) *AppError {
	return NewAppError(KindConflict, message, nil)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(KindUnauthorized, message, nil)
}

// NewServiceError wraps an infrastructure failure.
func NewServiceError(message string, err error) *AppError {
	return NewAppError(KindService, message, err)
}

// NewTransientServiceError wraps an infrastructure failure that may succeed if retried.
func NewTransientServiceError(message string, err error) *AppError {
	e := NewAppError(KindService, message, err)
	e.Transient = true
	return e
}

// KindOf returns the kind of the first AppError in err's chain, or KindService for anything else.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindConflict
	}
	return KindService
}

// IsTransient reports whether err carries a transient service error.
func IsTransient(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Transient
}
