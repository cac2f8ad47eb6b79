package indexing

import (
	"errors"
	"fmt"
)

// ValidationError marks bad input or an unreachable/malformed robots.txt or
// sitemap. It surfaces to API callers as a 4xx-equivalent and carries an
// optional hint about the bot-protection mechanism that blocked the fetch.
type ValidationError struct {
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Hint)
	}
	return e.Message
}

// NewValidationError builds a ValidationError without a protection hint.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError marks a missing website, page, or job.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}
