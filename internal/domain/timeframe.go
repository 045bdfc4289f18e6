package domain

import (
	"fmt"
	"strings"
)

// Timeframe is the user-facing span of history, e.g. "1M".
type Timeframe string

const (
	Timeframe1M Timeframe = "1M"
	Timeframe3M Timeframe = "3M"
	Timeframe6M Timeframe = "6M"
	Timeframe1Y Timeframe = "1Y"
	Timeframe2Y Timeframe = "2Y"
	Timeframe5Y Timeframe = "5Y"
)

// ProviderInterval is the sample granularity code sent upstream.
type ProviderInterval string

const (
	Interval1m  ProviderInterval = "1m"
	Interval5m  ProviderInterval = "5m"
	Interval15m ProviderInterval = "15m"
	Interval30m ProviderInterval = "30m"
	Interval1h  ProviderInterval = "1h"
	Interval1d  ProviderInterval = "1d"
	Interval1wk ProviderInterval = "1wk"
	Interval1mo ProviderInterval = "1mo"
)

const (
	DefaultTimeframe = Timeframe1M
	DefaultInterval  = "hour"

	// MaxIntradayDays is the longest window upstream serves intraday samples for.
	MaxIntradayDays = 60
)

var timeframeDays = map[Timeframe]int{
	Timeframe1M: 30,
	Timeframe3M: 90,
	Timeframe6M: 180,
	Timeframe1Y: 365,
	Timeframe2Y: 730,
	Timeframe5Y: 1825,
}

var intervalCodes = map[string]ProviderInterval{
	"minute": Interval1m,
	"5min":   Interval5m,
	"15min":  Interval15m,
	"30min":  Interval30m,
	"hour":   Interval1h,
	"day":    Interval1d,
	"week":   Interval1wk,
	"month":  Interval1mo,
}

// Intraday reports whether samples are finer than one day.
func (i ProviderInterval) Intraday() bool {
	switch i {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval1h:
		return true
	default:
		return false
	}
}

// Window is the resolved request span and granularity.
type Window struct {
	Timeframe     Timeframe        `json:"timeframe,omitempty"`
	RequestedDays int              `json:"requested_days"`
	Days          int              `json:"days"`
	Interval      ProviderInterval `json:"interval"`
	Warning       string           `json:"warning,omitempty"`
}

// Clamped reports whether the intraday limit shortened the window.
func (w Window) Clamped() bool {
	return w.Days < w.RequestedDays
}

// ParseTimeframe returns the recognized timeframe for s.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := timeframeDays[tf]; !ok {
		return "", fmt.Errorf("%w: unsupported timeframe %q", ErrInvalidParameter, s)
	}
	return tf, nil
}

// ResolveInterval maps an interval name to its provider code, defaulting to 1h.
func ResolveInterval(s string) ProviderInterval {
	if code, ok := intervalCodes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return code
	}
	return Interval1h
}

// Resolve maps timeframe and interval to a provider window.
// Unrecognized timeframes fail with ErrInvalidParameter.
func Resolve(timeframe, interval string) (Window, error) {
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return Window{}, err
	}
	w := ResolveDays(timeframeDays[tf], interval)
	w.Timeframe = tf
	return w, nil
}

// ResolveOrDefault is Resolve with DefaultTimeframe substituted for anything unrecognized.
func ResolveOrDefault(timeframe, interval string) Window {
	w, err := Resolve(timeframe, interval)
	if err != nil {
		w, _ = Resolve(string(DefaultTimeframe), interval)
	}
	return w
}

// ResolveDays builds a window for a fixed day count, applying the intraday clamp.
func ResolveDays(days int, interval string) Window {
	code := ResolveInterval(interval)
	w := Window{
		RequestedDays: days,
		Days:          days,
		Interval:      code,
	}
	if code.Intraday() && days > MaxIntradayDays {
		w.Days = MaxIntradayDays
		w.Warning = fmt.Sprintf("Limiting %s data to %d days instead of %d", code, MaxIntradayDays, days)
	}
	return w
}
