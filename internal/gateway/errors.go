package gateway

import (
	"context"
	"errors"
	"fmt"

	"pfm/internal/log"
)

// Failure kinds shared by every adapter.
var (
	ErrNetwork   = errors.New("network error")
	ErrMalformed = errors.New("malformed response")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// ErrorType maps err onto the log error-type vocabulary.
func ErrorType(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return log.ErrorTypeStatus
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	case errors.Is(err, ErrMalformed):
		return log.ErrorTypeMalformed
	case errors.Is(err, ErrNetwork), errors.Is(err, context.Canceled):
		return log.ErrorTypeNetwork
	default:
		return log.ErrorTypeInternal
	}
}
