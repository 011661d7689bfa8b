package provider

import (
	"errors"
	"fmt"
	"net/http"

	"EquityLens/internal/domain/models"
)

// Failure classes surfaced by every provider client. RateLimited must stay
// distinguishable from Unavailable so the retry supervisor can back off
// differently.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnavailable  = errors.New("unavailable")
)

// Error wraps a failure class with the provider and category it came from.
type Error struct {
	Provider string
	Category models.Category
	Status   int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s/%s: %v (status %d)", e.Provider, e.Category, e.Err, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status to a failure class, or nil for success.
func ClassifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUnavailable
	}
}

// Wrap builds a classified *Error for a provider call.
func Wrap(name string, category models.Category, status int, class error) error {
	return &Error{Provider: name, Category: category, Status: status, Err: class}
}

// Retryable reports whether the failure class may succeed on a later attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
