package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed lookup for the transport layer.
type ErrorKind string

const (
	KindInvalidParameter ErrorKind = "invalid_parameter"
	KindNoData           ErrorKind = "no_data"
	KindRateLimited      ErrorKind = "rate_limited"
	KindUpstreamFailure  ErrorKind = "upstream_failure"
)

// Sentinel errors wrapped by resolvers and providers with %w.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNoData           = errors.New("no data")
	ErrRateLimited      = errors.New("rate limited")
	ErrUpstreamFailure  = errors.New("upstream failure")
)

// FetchError is the single failure type returned by the fetch client.
type FetchError struct {
	Kind     ErrorKind
	Symbol   string
	Interval string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Interval != "" {
		return fmt.Sprintf("error fetching %s data for %s: %v", e.Interval, e.Symbol, e.Err)
	}
	return fmt.Sprintf("error fetching data for %s: %v", e.Symbol, e.Err)
}

// Unwrap returns underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err with the kind derived from it.
func NewFetchError(symbol, interval string, err error) *FetchError {
	return &FetchError{
		Kind:     KindOf(err),
		Symbol:   symbol,
		Interval: interval,
		Err:      err,
	}
}

// KindOf classifies err. A FetchError keeps the kind it was built with, so a
// rate limit that exhausted its retries still reports upstream_failure.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		return fe.Kind
	case errors.Is(err, ErrInvalidParameter):
		return KindInvalidParameter
	case errors.Is(err, ErrNoData):
		return KindNoData
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindUpstreamFailure
	}
}
