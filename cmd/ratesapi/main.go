package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jmanzanog/fx-rate-api/internal/application"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/config"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata/finnhub"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata/twelvedata"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata/yahoo"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata/yfinance"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/metrics"
	httpHandler "github.com/jmanzanog/fx-rate-api/internal/interfaces/http"
)

// setupLogger configures and returns a structured logger with source information
func setupLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(level),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildServer creates and configures the HTTP server with all routes and handlers
func buildServer(cfg *config.Config, service httpHandler.RateService, recorder *metrics.Recorder) *http.Server {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		httpHandler.RequestID(),
		httpHandler.RequestLogger(),
		httpHandler.CORS(cfg.CORSAllowedOrigins),
		httpHandler.RequestMetrics(recorder),
	)

	handler := httpHandler.NewHandler(service, httpHandler.Defaults{
		Version:         cfg.AppVersion,
		Currency:        cfg.FXDefaultCurrency,
		QuoteSymbol:     cfg.QuoteDefaultSymbol,
		QuoteWindowDays: cfg.QuoteWindowDays,
	})
	httpHandler.SetupRoutes(router, handler)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// createMarketDataClient creates the appropriate market data client based on configuration
func createMarketDataClient(cfg *config.Config) marketdata.HistoryProvider {
	switch cfg.MarketDataProvider {
	case config.ProviderFinnhub:
		return finnhub.NewClientWithHTTPClient(cfg.FinnhubAPIKey, &http.Client{Timeout: cfg.UpstreamTimeout})
	case config.ProviderTwelveData:
		client := twelvedata.NewClient(cfg.TwelveDataAPIKey)
		client.SetTimeout(cfg.UpstreamTimeout)
		return client
	case config.ProviderYahoo:
		client := yahoo.NewClient(cfg.UpstreamTimeout)
		client.SetBaseURL(cfg.YahooBaseURL)
		return client
	default:
		return yfinance.NewClientWithBaseURL(cfg.YFinanceBaseURL, cfg.UpstreamTimeout)
	}
}

// newRateService wires the fetch client to the configured provider and retry policy
func newRateService(cfg *config.Config, provider marketdata.HistoryProvider, recorder *metrics.Recorder) *application.RateService {
	return application.NewRateService(provider,
		application.WithRetryPolicy(application.RetryPolicy{
			MaxAttempts: cfg.FetchMaxAttempts,
			BaseDelay:   cfg.FetchBackoffBase,
		}),
		application.WithExchangeRateWindow(cfg.FXWindowDays),
		application.WithObserver(recorder),
	)
}

// App wraps the application components for easier testing
type App struct {
	Server *http.Server
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return nil
}

// run contains the main application logic without os.Exit calls
func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogger(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	provider := createMarketDataClient(cfg)
	slog.Info("Using market data provider", "provider", provider.Name())

	recorder := metrics.New()
	service := newRateService(cfg, provider, recorder)

	app := &App{
		Server: buildServer(cfg, service, recorder),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "host", cfg.ServerHost, "port", cfg.ServerPort)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	// Wait for termination signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("Server exited gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
