package yahoo

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
	defaultBaseURL = "https://query1.finance.yahoo.com"
	chartPath      = "/v8/finance/chart"
	userAgent      = "Mozilla/5.0"
	codeNotFound   = "Not Found"
)

// Client implements the HistoryProvider interface against the public Yahoo Finance chart API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	if baseURL != "" {
		c.baseURL = baseURL
	}
}

func (c *Client) Name() string { return "yahoo" }

// chartResponse is the v8 chart payload. Price arrays contain nulls for
// sessions without trades.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) History(ctx context.Context, q marketdata.HistoryQuery) (*marketdata.Frame, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(q.Start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(q.End.Unix(), 10))
	params.Set("interval", string(q.Interval))

	reqURL := fmt.Sprintf("%s%s/%s?%s", c.baseURL, chartPath, url.PathEscape(q.Symbol.Ticker), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "url", reqURL)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: API returned status %d", domain.ErrRateLimited, resp.StatusCode)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)

	if decodeErr == nil && chart.Chart.Error != nil {
		if chart.Chart.Error.Code == codeNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoData, chart.Chart.Error.Description)
		}
		return nil, fmt.Errorf("API error: %s", chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return marketdata.NewOHLCVFrame(0), nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	frame := marketdata.NewOHLCVFrame(len(result.Timestamp))

	for i, ts := range result.Timestamp {
		frame.AppendRow(
			time.Unix(ts, 0),
			at(quote.Open, i),
			at(quote.High, i),
			at(quote.Low, i),
			at(quote.Close, i),
			at(quote.Volume, i),
		)
	}

	return frame, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

var _ marketdata.HistoryProvider = (*Client)(nil)
