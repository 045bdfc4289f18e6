package marketdata

import (
	"context"
	"time"

	"github.com/jmanzanog/fx-rate-api/internal/domain"
)

// HistoryQuery describes one upstream time-series request.
type HistoryQuery struct {
	Symbol   domain.Symbol
	Start    time.Time
	End      time.Time
	Interval domain.ProviderInterval
}

// HistoryProvider fetches raw time-series tables from an upstream source.
// Implementations wrap domain.ErrRateLimited when the upstream throttles and
// domain.ErrNoData when it has nothing for the window.
//
//go:generate mockgen -package=mocks -destination=mocks/mock_provider.go -source=provider.go HistoryProvider
type HistoryProvider interface {
	Name() string
	History(ctx context.Context, q HistoryQuery) (*Frame, error)
}
