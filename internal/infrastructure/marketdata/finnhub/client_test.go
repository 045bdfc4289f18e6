package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmanzanog/fx-rate-api/internal/domain"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata"
)

var (
	testEnd   = time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)
	testStart = testEnd.AddDate(0, 0, -10)
)

func historyQuery(symbol string, interval domain.ProviderInterval) marketdata.HistoryQuery {
	return marketdata.HistoryQuery{
		Symbol:   domain.NormalizeSymbol(symbol),
		Start:    testStart,
		End:      testEnd,
		Interval: interval,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, "finnhub", client.Name())
}

func TestNewClientWithHTTPClient(t *testing.T) {
	customHTTPClient := &http.Client{Timeout: 30 * time.Second}
	client := NewClientWithHTTPClient("test-api-key", customHTTPClient)

	assert.NotNil(t, client)
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, customHTTPClient, client.httpClient)
}

func TestClient_SetBaseURL(t *testing.T) {
	client := NewClient("test-api-key")
	newURL := "https://custom.api.com"

	client.SetBaseURL(newURL)

	assert.Equal(t, newURL, client.baseURL)
}

func TestClient_History_Stock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "60", r.URL.Query().Get("resolution"))
		assert.Equal(t, strconv.FormatInt(testStart.Unix(), 10), r.URL.Query().Get("from"))
		assert.Equal(t, strconv.FormatInt(testEnd.Unix(), 10), r.URL.Query().Get("to"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("token"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"c": [195.5, 196.9],
			"h": [196.0, 197.2],
			"l": [194.8, 195.0],
			"o": [195.1, 195.5],
			"s": "ok",
			"t": [1734948000, 1734951600],
			"v": [1200, 900]
		}`))
	}))
	defer server.Close()

	client := NewClient("test-api-key")
	client.SetBaseURL(server.URL)

	frame, err := client.History(context.Background(), historyQuery("AAPL", domain.Interval1h))

	require.NoError(t, err)
	require.Equal(t, 2, frame.Len())
	require.NoError(t, frame.Validate())
	assert.Equal(t, time.Unix(1734948000, 0).UTC(), frame.Index[0].Time)
	assert.Equal(t, 197.2, *frame.Data[1][frame.ColumnIndex(marketdata.FieldHigh)])
	assert.Equal(t, 900.0, *frame.Data[1][frame.ColumnIndex(marketdata.FieldVolume)])
}

func TestClient_History_Targets(t *testing.T) {
	tests := []struct {
		name           string
		symbol         string
		interval       domain.ProviderInterval
		expectedPath   string
		expectedSymbol string
		expectedRes    string
	}{
		{"forex", "GHC", domain.Interval1d, "/forex/candle", "OANDA:USD_GHC", "D"},
		{"crypto", "BTC", domain.Interval5m, "/crypto/candle", "BINANCE:BTCUSDT", "5"},
		{"stock weekly", "MSFT", domain.Interval1wk, "/stock/candle", "MSFT", "W"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.expectedPath, r.URL.Path)
				assert.Equal(t, tt.expectedSymbol, r.URL.Query().Get("symbol"))
				assert.Equal(t, tt.expectedRes, r.URL.Query().Get("resolution"))
				_, _ = w.Write([]byte(`{"c":[1],"h":[1],"l":[1],"o":[1],"t":[1734948000],"s":"ok"}`))
			}))
			defer server.Close()

			client := NewClient("test-api-key")
			client.SetBaseURL(server.URL)

			frame, err := client.History(context.Background(), historyQuery(tt.symbol, tt.interval))

			require.NoError(t, err)
			assert.Equal(t, 1, frame.Len())
			assert.Equal(t, 0.0, *frame.Data[0][frame.ColumnIndex(marketdata.FieldVolume)])
		})
	}
}

func TestClient_History_Errors(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        string
		expectedErr error
	}{
		{"no data", http.StatusOK, `{"s": "no_data"}`, domain.ErrNoData},
		{"rate limited", http.StatusTooManyRequests, `{"error": "API limit reached"}`, domain.ErrRateLimited},
		{"forbidden", http.StatusForbidden, `{"error": "You don't have access to this resource."}`, nil},
		{"server error", http.StatusInternalServerError, `Internal Server Error`, nil},
		{"invalid json", http.StatusOK, `{invalid}`, nil},
		{"mismatched arrays", http.StatusOK, `{"c":[1,2],"h":[1],"l":[1],"o":[1],"t":[1],"s":"ok"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient("test-api-key")
			client.SetBaseURL(server.URL)

			frame, err := client.History(context.Background(), historyQuery("AAPL", domain.Interval1d))

			require.Error(t, err)
			assert.Nil(t, frame)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestClient_History_UnsupportedInterval(t *testing.T) {
	client := NewClient("test-api-key")

	_, err := client.History(context.Background(), historyQuery("AAPL", "3h"))

	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestClient_History_NetworkError(t *testing.T) {
	client := NewClient("test-api-key")
	client.SetBaseURL("http://127.0.0.1:0")

	_, err := client.History(context.Background(), historyQuery("AAPL", domain.Interval1d))

	assert.Error(t, err)
}
