package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"invalid parameter", fmt.Errorf("%w: bad timeframe", ErrInvalidParameter), KindInvalidParameter},
		{"no data", fmt.Errorf("wrapped: %w", ErrNoData), KindNoData},
		{"rate limited", fmt.Errorf("%w: status 429", ErrRateLimited), KindRateLimited},
		{"network", errors.New("connection refused"), KindUpstreamFailure},
		{"context", context.DeadlineExceeded, KindUpstreamFailure},
		{
			"fetch error keeps its kind",
			&FetchError{Kind: KindUpstreamFailure, Symbol: "AAPL", Err: ErrRateLimited},
			KindUpstreamFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFetchError(t *testing.T) {
	err := NewFetchError("BTC-USD", "1h", fmt.Errorf("%w: empty table", ErrNoData))

	if err.Kind != KindNoData {
		t.Errorf("expected kind %s, got %s", KindNoData, err.Kind)
	}
	if !errors.Is(err, ErrNoData) {
		t.Error("expected FetchError to unwrap to ErrNoData")
	}
	if !strings.Contains(err.Error(), "error fetching 1h data for BTC-USD") {
		t.Errorf("unexpected message %q", err.Error())
	}

	var wrapped error = fmt.Errorf("handler: %w", err)
	var fe *FetchError
	if !errors.As(wrapped, &fe) || fe.Symbol != "BTC-USD" {
		t.Error("expected errors.As to find FetchError")
	}
}

func TestFetchError_WithoutInterval(t *testing.T) {
	err := &FetchError{Kind: KindInvalidParameter, Symbol: "X", Err: ErrInvalidParameter}
	if err.Error() != "error fetching data for X: invalid parameter" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
