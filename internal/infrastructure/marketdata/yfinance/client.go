package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jmanzanog/fx-rate-api/internal/domain"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata"
)

const (
	historyPath = "/api/v1/history"
	dateLayout  = "2006-01-02"
)

// Client implements the HistoryProvider interface using the yfinance-based Market Data Service.
// The service returns pandas frames in "split" orientation.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClientWithBaseURL creates a client for the service at baseURL.
func NewClientWithBaseURL(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() string {
	return "yfinance"
}

// errorResponse represents an error response from the API.
type errorResponse struct {
	Detail string `json:"detail"`
}

// History retrieves OHLCV history for the query window.
func (c *Client) History(ctx context.Context, q marketdata.HistoryQuery) (*marketdata.Frame, error) {
	params := url.Values{}
	params.Set("start", q.Start.UTC().Format(dateLayout))
	params.Set("end", q.End.UTC().Format(dateLayout))
	params.Set("interval", string(q.Interval))

	reqURL := fmt.Sprintf("%s%s/%s?%s", c.baseURL, historyPath, url.PathEscape(q.Symbol.Ticker), params.Encode())

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
			slog.Warn("failed to close response body", "error", closeErr, "url", reqURL)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: no history found for symbol: %s", domain.ErrNoData, q.Symbol.Ticker)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: API returned status %d", domain.ErrRateLimited, resp.StatusCode)
	default:
		body, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("API error: %s", errResp.Detail)
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var frame marketdata.Frame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &frame, nil
}

// Compile-time check that Client implements HistoryProvider.
var _ marketdata.HistoryProvider = (*Client)(nil)
