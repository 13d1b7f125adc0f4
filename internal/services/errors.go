package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is deliberately generic: callers must not be able to
	// tell a missing key from a lapsed one.
	ErrUnauthorized = errors.New("invalid or missing license key")

	// ErrDuplicateEvent marks a webhook delivery already in the ledger.
	ErrDuplicateEvent = errors.New("event already processed")

	// ErrInvalidSignature covers any webhook verification failure.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// QuotaError reports an exhausted usage quota (HTTP 429).
type QuotaError struct {
	Limit     int
	Used      int
	LimitType string
	Tier      string
}

func (e *QuotaError) Error() string {
	if e.LimitType == LimitTypePerDay {
		return "Daily limit reached"
	}
	return "Rate limit reached, please wait a moment"
}

// UpstreamError wraps a non-success response from the LLM gateway or the
// billing provider. The upstream message is operator-facing diagnosis, not
// end-user copy.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Service, e.Status, e.Message)
}
