package application

import (
	"fmt"
	"slices"

	"github.com/jmanzanog/fx-rate-api/internal/domain"
	"github.com/jmanzanog/fx-rate-api/internal/infrastructure/marketdata"
)

var requiredFields = []string{
	marketdata.FieldOpen,
	marketdata.FieldHigh,
	marketdata.FieldLow,
	marketdata.FieldClose,
	marketdata.FieldVolume,
}

// normalizeFrame flattens headers, drops rows with any missing cell and
// returns the remaining rows in chronological order.
func normalizeFrame(frame *marketdata.Frame) (domain.TimeSeries, error) {
	if frame.Len() == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty table", domain.ErrNoData)
	}
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("%w: malformed table: %v", domain.ErrUpstreamFailure, err)
	}

	frame.Flatten()

	positions := make([]int, len(requiredFields))
	for i, field := range requiredFields {
		idx := frame.ColumnIndex(field)
		if idx < 0 {
			return nil, fmt.Errorf("%w: table has no %s column", domain.ErrUpstreamFailure, field)
		}
		positions[i] = idx
	}

	rows := make(domain.TimeSeries, 0, frame.Len())
	for i, cells := range frame.Data {
		if slices.Contains(cells, nil) {
			continue
		}

		values := make([]domain.Decimal, len(positions))
		complete := true
		for j, idx := range positions {
			d, err := domain.NewDecimalFromFloat(*cells[idx])
			if err != nil {
				complete = false
				break
			}
			values[j] = d
		}
		if !complete {
			continue
		}

		rows = append(rows, domain.TimeSeriesRow{
			Timestamp: frame.Index[i].Time,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no complete rows in table", domain.ErrNoData)
	}

	slices.SortStableFunc(rows, func(a, b domain.TimeSeriesRow) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return rows, nil
}
