package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jmanzanog/fx-rate-api/internal/domain"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	timeSeriesPath = "/time_series"
	dateTimeLayout = "2006-01-02 15:04:05"
	maxOutputSize  = 5000
)

var intervalCodes = map[domain.ProviderInterval]string{
	domain.Interval1m:  "1min",
	domain.Interval5m:  "5min",
	domain.Interval15m: "15min",
	domain.Interval30m: "30min",
	domain.Interval1h:  "1h",
	domain.Interval1d:  "1day",
	domain.Interval1wk: "1week",
	domain.Interval1mo: "1month",
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetTimeout overrides the upstream request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

func (c *Client) Name() string {
	return "twelvedata"
}

type timeSeriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

type timeSeriesResponse struct {
	Values  []timeSeriesValue `json:"values"`
	Status  string            `json:"status"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
}

// pairSymbol converts a normalized symbol to the Twelve Data pair notation.
func pairSymbol(s domain.Symbol) string {
	switch s.Class {
	case domain.AssetClassCurrency:
		return domain.QuoteCurrency + "/" + s.Base
	case domain.AssetClassCrypto:
		return s.Base + "/" + domain.QuoteCurrency
	default:
		return s.Ticker
	}
}

func (c *Client) History(ctx context.Context, q marketdata.HistoryQuery) (*marketdata.Frame, error) {
	interval, ok := intervalCodes[q.Interval]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported interval %q", domain.ErrInvalidParameter, q.Interval)
	}

	params := url.Values{}
	params.Add("symbol", pairSymbol(q.Symbol))
	params.Add("interval", interval)
	params.Add("start_date", q.Start.UTC().Format(dateTimeLayout))
	params.Add("end_date", q.End.UTC().Format(dateTimeLayout))
	params.Add("outputsize", strconv.Itoa(maxOutputSize))
	params.Add("timezone", "UTC")
	params.Add("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, timeSeriesPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "path", timeSeriesPath)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: API returned status %d", domain.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tsResp timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&tsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if tsResp.Status == "error" {
		switch tsResp.Code {
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, tsResp.Message)
		case http.StatusNotFound, http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", domain.ErrNoData, tsResp.Message)
		default:
			return nil, fmt.Errorf("time series request failed for symbol %s: %s", q.Symbol.Ticker, tsResp.Message)
		}
	}

	frame := marketdata.NewOHLCVFrame(len(tsResp.Values))
	for _, v := range tsResp.Values {
		ts, err := marketdata.ParseTimestamp(v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse datetime: %w", err)
		}
		volume := parseValue(v.Volume)
		if volume == nil {
			// forex pairs carry no volume
			zero := 0.0
			volume = &zero
		}
		frame.AppendRow(ts, parseValue(v.Open), parseValue(v.High), parseValue(v.Low), parseValue(v.Close), volume)
	}

	return frame, nil
}

func parseValue(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

var _ marketdata.HistoryProvider = (*Client)(nil)
