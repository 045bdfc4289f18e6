package yahoo

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

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(5 * time.Second)
	client.SetBaseURL(server.URL)
	return client
}

func historyQuery(symbol string) marketdata.HistoryQuery {
	end := time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)
	return marketdata.HistoryQuery{
		Symbol:   domain.NormalizeSymbol(symbol),
		Start:    end.AddDate(0, 0, -10),
		End:      end,
		Interval: domain.Interval1h,
	}
}

func TestClient_History(t *testing.T) {
	q := historyQuery("EUR")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/EUR=X", r.URL.Path)
		assert.Equal(t, strconv.FormatInt(q.Start.Unix(), 10), r.URL.Query().Get("period1"))
		assert.Equal(t, strconv.FormatInt(q.End.Unix(), 10), r.URL.Query().Get("period2"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{"chart": {"result": [{
			"timestamp": [1734948000, 1734951600, 1734955200],
			"indicators": {"quote": [{
				"open":   [0.95, null, 0.96],
				"high":   [0.96, null, 0.97],
				"low":    [0.94, null, 0.95],
				"close":  [0.955, null, 0.965],
				"volume": [0, null, 0]
			}]}
		}], "error": null}}`))
	})

	frame, err := client.History(context.Background(), q)

	require.NoError(t, err)
	require.Equal(t, 3, frame.Len())
	require.NoError(t, frame.Validate())
	assert.Nil(t, frame.Data[1][frame.ColumnIndex(marketdata.FieldClose)])
	assert.Equal(t, 0.965, *frame.Data[2][frame.ColumnIndex(marketdata.FieldClose)])
}

func TestClient_History_Errors(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        string
		expectedErr error
	}{
		{
			name:        "rate limited",
			statusCode:  http.StatusTooManyRequests,
			body:        `Too Many Requests`,
			expectedErr: domain.ErrRateLimited,
		},
		{
			name:        "not found",
			statusCode:  http.StatusNotFound,
			body:        `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`,
			expectedErr: domain.ErrNoData,
		},
		{
			name:       "bad request",
			statusCode: http.StatusBadRequest,
			body:       `{"chart": {"result": null, "error": {"code": "Bad Request", "description": "Invalid input - interval=7m is not supported"}}}`,
		},
		{
			name:       "server error",
			statusCode: http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
		},
		{
			name:       "malformed json",
			statusCode: http.StatusOK,
			body:       `{"chart":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			})

			frame, err := client.History(context.Background(), historyQuery("AAPL"))

			require.Error(t, err)
			assert.Nil(t, frame)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestClient_History_EmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart": {"result": [], "error": null}}`))
	})

	frame, err := client.History(context.Background(), historyQuery("BTC"))

	require.NoError(t, err)
	assert.Equal(t, 0, frame.Len())
}
