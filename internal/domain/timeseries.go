package domain

import "time"

// TimeSeriesRow is one provider sample.
type TimeSeriesRow struct {
	Timestamp time.Time `json:"timestamp"`
	Open      Decimal   `json:"open"`
	High      Decimal   `json:"high"`
	Low       Decimal   `json:"low"`
	Close     Decimal   `json:"close"`
	Volume    Decimal   `json:"volume"`
}

// TimeSeries is an ordered run of samples, oldest first.
type TimeSeries []TimeSeriesRow

// Latest returns the most recent row.
func (s TimeSeries) Latest() (TimeSeriesRow, bool) {
	if len(s) == 0 {
		return TimeSeriesRow{}, false
	}
	return s[len(s)-1], true
}
