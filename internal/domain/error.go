package domain

import (
	"errors"
	"fmt"
)

var (
	// Caller-facing taxonomy
	ErrValidation         = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("missing or invalid credentials")
	ErrForbidden          = errors.New("not permitted")
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrGateway            = errors.New("payment gateway error")
	ErrAlreadyProcessed   = errors.New("already processed")
	ErrInvalidSignature   = errors.New("invalid signature")

	// Storage plumbing
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// GatewayError describes a failed exchange with the external payment gateway.
// Retryable is true when the caller may safely try the same checkout again.
type GatewayError struct {
	Op         string
	StatusCode int
	Code       string
	Retryable  bool
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGateway, e.Err}
	}
	return []error{ErrGateway}
}

// IsRetryable reports whether err carries a retryable gateway failure.
func IsRetryable(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Retryable
}

// Validationf wraps ErrValidation with a caller-readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
