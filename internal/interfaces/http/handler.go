package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jmanzanog/fx-rate-api/internal/application"
	"github.com/jmanzanog/fx-rate-api/internal/domain"
)

// RateService defines the lookups served over HTTP
type RateService interface {
	FetchTable(ctx context.Context, req application.FetchRequest) (*application.TableResult, error)
	LatestClose(ctx context.Context, req application.FetchRequest) (*application.PriceResult, error)
	ExchangeRate(ctx context.Context, currency string) (*application.PriceResult, error)
}

// Defaults are the per-route fallbacks applied when a caller omits a parameter.
type Defaults struct {
	Version         string
	Currency        string
	QuoteSymbol     string
	QuoteWindowDays int
}

type Handler struct {
	rateService RateService
	defaults    Defaults
}

func NewHandler(rateService RateService, d Defaults) *Handler {
	return &Handler{
		rateService: rateService,
		defaults:    d,
	}
}

type ExchangeRateRequest struct {
	BaseCurrency *string `form:"base_currency" json:"base_currency" binding:"omitempty,alpha,len=3"`
}

type StockDataRequest struct {
	Symbol    string `form:"symbol" binding:"required,ticker"`
	Timeframe string `form:"timeframe" default:"1M"`
	Interval  string `form:"interval" default:"hour"`
}

type PriceRequest struct {
	Symbol    string `form:"symbol" binding:"omitempty,ticker"`
	Timeframe string `form:"timeframe"`
	Interval  string `form:"interval" default:"hour"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

type PingResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type ExchangeRateResponse struct {
	Symbol    string         `json:"symbol"`
	Rate      domain.Decimal `json:"rate"`
	Timestamp time.Time      `json:"timestamp"`
	Warning   string         `json:"warning,omitempty"`
}

type StockDataResponse struct {
	Symbol    string            `json:"symbol"`
	Ticker    string            `json:"ticker"`
	Timeframe string            `json:"timeframe"`
	Interval  string            `json:"interval"`
	Days      int               `json:"days"`
	Count     int               `json:"count"`
	Data      domain.TimeSeries `json:"data"`
	Warning   string            `json:"warning,omitempty"`
}

type PriceResponse struct {
	Symbol    string         `json:"symbol"`
	Ticker    string         `json:"ticker"`
	Price     domain.Decimal `json:"price"`
	Timestamp time.Time      `json:"timestamp"`
	Warning   string         `json:"warning,omitempty"`
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   h.defaults.Version,
	})
}

func (h *Handler) ExchangeRate(c *gin.Context) {
	var req ExchangeRateRequest
	var err error
	if c.Request.Method == http.MethodPost && c.ContentType() == binding.MIMEJSON {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		h.badRequest(c, "Invalid base_currency parameter", err)
		return
	}

	currency := h.defaults.Currency
	if req.BaseCurrency != nil {
		currency = strings.TrimSpace(*req.BaseCurrency)
	}
	if currency == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Missing symbol parameter",
			Kind:    string(domain.KindInvalidParameter),
			Message: "Please provide a currency symbol",
		})
		return
	}

	result, err := h.rateService.ExchangeRate(c.Request.Context(), currency)
	if err != nil {
		h.fail(c, "Failed to fetch exchange rate data", err, "currency", currency)
		return
	}

	c.JSON(http.StatusOK, ExchangeRateResponse{
		Symbol:    result.Symbol.Base,
		Rate:      result.Price,
		Timestamp: result.Timestamp,
		Warning:   result.Window.Warning,
	})
}

func (h *Handler) StockData(c *gin.Context) {
	var req StockDataRequest
	if err := bindQueryWithDefaults(c, &req); err != nil {
		h.badRequest(c, "Invalid stock data parameters", err)
		return
	}

	table, err := h.rateService.FetchTable(c.Request.Context(), application.FetchRequest{
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Interval:  req.Interval,
	})
	if err != nil {
		h.fail(c, "Failed to fetch stock data", err, "symbol", req.Symbol, "timeframe", req.Timeframe)
		return
	}

	c.JSON(http.StatusOK, StockDataResponse{
		Symbol:    table.Symbol.Input,
		Ticker:    table.Symbol.Ticker,
		Timeframe: string(table.Window.Timeframe),
		Interval:  string(table.Window.Interval),
		Days:      table.Window.Days,
		Count:     len(table.Rows),
		Data:      table.Rows,
		Warning:   table.Window.Warning,
	})
}

func (h *Handler) Price(c *gin.Context) {
	var req PriceRequest
	if err := bindQueryWithDefaults(c, &req); err != nil {
		h.badRequest(c, "Invalid price parameters", err)
		return
	}

	fetch := application.FetchRequest{
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Interval:  req.Interval,
	}
	if fetch.Symbol == "" {
		fetch.Symbol = h.defaults.QuoteSymbol
	}
	if fetch.Timeframe == "" {
		fetch.WindowDays = h.defaults.QuoteWindowDays
	}

	result, err := h.rateService.LatestClose(c.Request.Context(), fetch)
	if err != nil {
		h.fail(c, "Failed to fetch price", err, "symbol", fetch.Symbol)
		return
	}

	c.JSON(http.StatusOK, PriceResponse{
		Symbol:    result.Symbol.Input,
		Ticker:    result.Symbol.Ticker,
		Price:     result.Price,
		Timestamp: result.Timestamp,
		Warning:   result.Window.Warning,
	})
}

// bindQueryWithDefaults fills `default` tags before binding, since binding
// leaves absent fields untouched.
func bindQueryWithDefaults(c *gin.Context, req any) error {
	if err := defaults.Set(req); err != nil {
		return err
	}
	return c.ShouldBindQuery(req)
}

func (h *Handler) badRequest(c *gin.Context, message string, err error) {
	slog.WarnContext(c.Request.Context(), message, "error", err, "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   err.Error(),
		Kind:    string(domain.KindInvalidParameter),
		Message: message,
	})
}

func (h *Handler) fail(c *gin.Context, message string, err error, attrs ...any) {
	status := statusForError(err)
	attrs = append(attrs, "error", err, "status", status, "request_id", c.GetString(requestIDKey))
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), message, attrs...)
	} else {
		slog.WarnContext(c.Request.Context(), message, attrs...)
	}

	c.JSON(status, ErrorResponse{
		Error:   err.Error(),
		Kind:    string(domain.KindOf(err)),
		Message: message,
	})
}

// statusForError maps a lookup failure to the response status.
func statusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidParameter:
		return http.StatusBadRequest
	case domain.KindNoData:
		return http.StatusNotFound
	case domain.KindRateLimited:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
