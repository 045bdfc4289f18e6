package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jmanzanog/fx-rate-api/internal/domain"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata"
)

const (
	defaultMaxAttempts      = 3
	defaultBaseDelay        = time.Second
	defaultExchangeRateDays = 10

	outcomeOK = "ok"
)

// RetryPolicy bounds the rate-limit retry loop. Waits grow as
// BaseDelay, 2*BaseDelay, 4*BaseDelay... between MaxAttempts calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// FetchObserver receives per-call telemetry from the service.
type FetchObserver interface {
	ObserveFetch(provider, outcome string, elapsed time.Duration)
	RecordRetry(provider string)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, string, time.Duration) {}
func (nopObserver) RecordRetry(string)                         {}

// FetchRequest is one caller lookup. Timeframe takes precedence over
// WindowDays; when both are empty the default timeframe applies.
type FetchRequest struct {
	Symbol     string
	Timeframe  string
	Interval   string
	WindowDays int
}

// TableResult is a normalized series, oldest row first. Rows is never empty.
type TableResult struct {
	Symbol domain.Symbol
	Window domain.Window
	Rows   domain.TimeSeries
}

// PriceResult is a single value taken from the most recent row.
type PriceResult struct {
	Symbol    domain.Symbol
	Window    domain.Window
	Price     domain.Decimal
	Timestamp time.Time
}

type RateService struct {
	provider         marketdata.HistoryProvider
	retry            RetryPolicy
	now              func() time.Time
	observer         FetchObserver
	exchangeRateDays int
}

type Option func(*RateService)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *RateService) {
		if p.MaxAttempts > 0 {
			s.retry.MaxAttempts = p.MaxAttempts
		}
		if p.BaseDelay > 0 {
			s.retry.BaseDelay = p.BaseDelay
		}
	}
}

// WithClock replaces time.Now as the window end.
func WithClock(now func() time.Time) Option {
	return func(s *RateService) {
		s.now = now
	}
}

func WithObserver(o FetchObserver) Option {
	return func(s *RateService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithExchangeRateWindow sets the fixed window used by ExchangeRate.
func WithExchangeRateWindow(days int) Option {
	return func(s *RateService) {
		if days > 0 {
			s.exchangeRateDays = days
		}
	}
}

func NewRateService(provider marketdata.HistoryProvider, opts ...Option) *RateService {
	s := &RateService{
		provider: provider,
		retry: RetryPolicy{
			MaxAttempts: defaultMaxAttempts,
			BaseDelay:   defaultBaseDelay,
		},
		now:              time.Now,
		observer:         nopObserver{},
		exchangeRateDays: defaultExchangeRateDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchTable returns the full normalized series for the request.
func (s *RateService) FetchTable(ctx context.Context, req FetchRequest) (*TableResult, error) {
	return s.fetch(ctx, req)
}

// LatestClose returns the close of the most recent row.
func (s *RateService) LatestClose(ctx context.Context, req FetchRequest) (*PriceResult, error) {
	table, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	row, _ := table.Rows.Latest()
	return &PriceResult{
		Symbol:    table.Symbol,
		Window:    table.Window,
		Price:     row.Close,
		Timestamp: row.Timestamp,
	}, nil
}

// LatestHigh returns the high of the most recent row.
func (s *RateService) LatestHigh(ctx context.Context, req FetchRequest) (*PriceResult, error) {
	table, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	row, _ := table.Rows.Latest()
	return &PriceResult{
		Symbol:    table.Symbol,
		Window:    table.Window,
		Price:     row.High,
		Timestamp: row.Timestamp,
	}, nil
}

// ExchangeRate returns the latest hourly high of currency against USD over
// the configured fixed window.
func (s *RateService) ExchangeRate(ctx context.Context, currency string) (*PriceResult, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !domain.IsCurrencyCode(code) {
		return nil, &domain.FetchError{
			Kind:   domain.KindInvalidParameter,
			Symbol: currency,
			Err:    fmt.Errorf("%w: currency must be a three letter code", domain.ErrInvalidParameter),
		}
	}

	return s.LatestHigh(ctx, FetchRequest{
		Symbol:     code,
		Interval:   domain.DefaultInterval,
		WindowDays: s.exchangeRateDays,
	})
}

func (s *RateService) resolveWindow(req FetchRequest) (domain.Window, error) {
	switch {
	case strings.TrimSpace(req.Timeframe) != "":
		return domain.Resolve(req.Timeframe, req.Interval)
	case req.WindowDays > 0:
		return domain.ResolveDays(req.WindowDays, req.Interval), nil
	default:
		return domain.ResolveOrDefault("", req.Interval), nil
	}
}

func (s *RateService) fetch(ctx context.Context, req FetchRequest) (*TableResult, error) {
	symbol := domain.NormalizeSymbol(req.Symbol)
	if symbol.Ticker == "" {
		return nil, &domain.FetchError{
			Kind: domain.KindInvalidParameter,
			Err:  fmt.Errorf("%w: symbol is required", domain.ErrInvalidParameter),
		}
	}

	window, err := s.resolveWindow(req)
	if err != nil {
		return nil, domain.NewFetchError(symbol.Ticker, "", err)
	}
	if window.Clamped() {
		slog.WarnContext(ctx, window.Warning,
			"symbol", symbol.Ticker,
			"requested_days", window.RequestedDays,
			"days", window.Days,
		)
	}

	end := s.now().UTC()
	query := marketdata.HistoryQuery{
		Symbol:   symbol,
		Start:    end.AddDate(0, 0, -window.Days),
		End:      end,
		Interval: window.Interval,
	}

	started := time.Now()
	rows, err := s.history(ctx, query)
	outcome := outcomeOK
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	s.observer.ObserveFetch(s.provider.Name(), outcome, time.Since(started))

	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, domain.NewFetchError(symbol.Ticker, string(window.Interval), err)
	}

	slog.DebugContext(ctx, "fetched time series",
		"symbol", symbol.Ticker,
		"interval", window.Interval,
		"days", window.Days,
		"rows", len(rows),
	)

	return &TableResult{
		Symbol: symbol,
		Window: window,
		Rows:   rows,
	}, nil
}

// history calls the provider, retrying only rate-limit failures, then normalizes.
func (s *RateService) history(ctx context.Context, q marketdata.HistoryQuery) (domain.TimeSeries, error) {
	var (
		frame    *marketdata.Frame
		attempts int
	)

	backoff := retry.WithMaxRetries(uint64(s.retry.MaxAttempts-1), retry.NewExponential(s.retry.BaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		f, err := s.provider.History(ctx, q)
		if err == nil {
			frame = f
			return nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		if attempts < s.retry.MaxAttempts {
			slog.WarnContext(ctx, "rate limited by provider, backing off",
				"provider", s.provider.Name(),
				"symbol", q.Symbol.Ticker,
				"attempt", attempts,
				"max_attempts", s.retry.MaxAttempts,
			)
			s.observer.RecordRetry(s.provider.Name())
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return nil, &domain.FetchError{
				Kind:     domain.KindUpstreamFailure,
				Symbol:   q.Symbol.Ticker,
				Interval: string(q.Interval),
				Err:      fmt.Errorf("rate limited after %d attempts: %w", attempts, err),
			}
		}
		return nil, err
	}

	return normalizeFrame(frame)
}
