package finnhub

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
	defaultBaseURL   = "https://finnhub.io/api/v1"
	stockCandlePath  = "/stock/candle"
	forexCandlePath  = "/forex/candle"
	cryptoCandlePath = "/crypto/candle"

	forexExchange  = "OANDA"
	cryptoExchange = "BINANCE"
	cryptoQuote    = "USDT"

	statusNoData = "no_data"
)

var resolutions = map[domain.ProviderInterval]string{
	domain.Interval1m:  "1",
	domain.Interval5m:  "5",
	domain.Interval15m: "15",
	domain.Interval30m: "30",
	domain.Interval1h:  "60",
	domain.Interval1d:  "D",
	domain.Interval1wk: "W",
	domain.Interval1mo: "M",
}

// Client implements the HistoryProvider interface using Finnhub API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Finnhub API client.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates a new Finnhub client with a custom HTTP client (for testing).
func NewClientWithHTTPClient(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) Name() string {
	return "finnhub"
}

// candleResponse represents the Finnhub candle response. Arrays are parallel.
type candleResponse struct {
	Close     []float64 `json:"c"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Open      []float64 `json:"o"`
	Volume    []float64 `json:"v"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// candleTarget returns the endpoint and Finnhub symbol for a normalized symbol.
func candleTarget(s domain.Symbol) (path, symbol string) {
	switch s.Class {
	case domain.AssetClassCurrency:
		return forexCandlePath, fmt.Sprintf("%s:%s_%s", forexExchange, domain.QuoteCurrency, s.Base)
	case domain.AssetClassCrypto:
		return cryptoCandlePath, fmt.Sprintf("%s:%s%s", cryptoExchange, s.Base, cryptoQuote)
	default:
		return stockCandlePath, s.Ticker
	}
}

// History retrieves candles for the query window.
func (c *Client) History(ctx context.Context, q marketdata.HistoryQuery) (*marketdata.Frame, error) {
	resolution, ok := resolutions[q.Interval]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported interval %q", domain.ErrInvalidParameter, q.Interval)
	}

	path, symbol := candleTarget(q.Symbol)

	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("resolution", resolution)
	params.Add("from", strconv.FormatInt(q.Start.Unix(), 10))
	params.Add("to", strconv.FormatInt(q.End.Unix(), 10))
	params.Add("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

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
			slog.Warn("failed to close response body", "error", closeErr, "path", path)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: API returned status %d", domain.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var candles candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&candles); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if candles.Status == statusNoData {
		return nil, fmt.Errorf("%w: no candles for symbol: %s", domain.ErrNoData, symbol)
	}

	n := len(candles.Timestamp)
	if len(candles.Open) != n || len(candles.High) != n || len(candles.Low) != n || len(candles.Close) != n {
		return nil, fmt.Errorf("candle arrays have mismatched lengths for symbol: %s", symbol)
	}

	frame := marketdata.NewOHLCVFrame(n)
	for i, ts := range candles.Timestamp {
		volume := 0.0
		if i < len(candles.Volume) {
			volume = candles.Volume[i]
		}
		frame.AppendRow(
			time.Unix(ts, 0),
			&candles.Open[i],
			&candles.High[i],
			&candles.Low[i],
			&candles.Close[i],
			&volume,
		)
	}

	return frame, nil
}

var _ marketdata.HistoryProvider = (*Client)(nil)
