package marketdata

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column is a table header. Multi-level headers hold one name per level,
// outermost (the field name) first, e.g. ["Close", "AAPL"].
type Column []string

// Field returns the outermost level name.
func (c Column) Field() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// UnmarshalJSON accepts either a plain string or an array of level names.
func (c *Column) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = Column{name}
		return nil
	}

	var levels []*string
	if err := json.Unmarshal(data, &levels); err != nil {
		return fmt.Errorf("column header must be a string or an array of strings: %s", string(data))
	}
	out := make(Column, len(levels))
	for i, l := range levels {
		if l != nil {
			out[i] = *l
		}
	}
	*c = out
	return nil
}

// Timestamp is a row index value. It decodes epoch milliseconds or date strings.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp tries each supported layout in turn, then unix milliseconds.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

// epochMillis accepts integral and exponent-form numbers such as 1.7040672E12.
func epochMillis(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("epoch %s out of range", n)
	}
	return int64(math.Round(f)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var ms json.Number
	if err := json.Unmarshal(data, &ms); err == nil {
		v, err := epochMillis(ms)
		if err != nil {
			return fmt.Errorf("invalid epoch timestamp %s: %w", ms, err)
		}
		t.Time = time.UnixMilli(v).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a number or a string: %s", string(data))
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Frame is a raw provider table in pandas "split" layout: one header per
// column, one index entry per row and row-major cells. A nil cell is missing.
type Frame struct {
	Columns []Column     `json:"columns"`
	Index   []Timestamp  `json:"index"`
	Data    [][]*float64 `json:"data"`
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// MultiLevel reports whether any header carries more than one level.
func (f *Frame) MultiLevel() bool {
	for _, c := range f.Columns {
		if len(c) > 1 {
			return true
		}
	}
	return false
}

// Flatten drops every header to its outermost level. Flat frames are left unchanged.
func (f *Frame) Flatten() {
	if !f.MultiLevel() {
		return
	}
	for i, c := range f.Columns {
		f.Columns[i] = Column{c.Field()}
	}
}

// ColumnIndex returns the position of the first column whose field is name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c.Field() == name {
			return i
		}
	}
	return -1
}

// Validate checks that index, data and headers agree in size.
func (f *Frame) Validate() error {
	if len(f.Index) != len(f.Data) {
		return fmt.Errorf("frame has %d index entries but %d rows", len(f.Index), len(f.Data))
	}
	for i, row := range f.Data {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("frame row %d has %d cells, expected %d", i, len(row), len(f.Columns))
		}
	}
	return nil
}

// OHLCV column names used by every provider.
const (
	FieldOpen   = "Open"
	FieldHigh   = "High"
	FieldLow    = "Low"
	FieldClose  = "Close"
	FieldVolume = "Volume"
)

// NewOHLCVFrame builds a flat frame with the standard columns.
// Providers append rows with AppendRow.
func NewOHLCVFrame(capacity int) *Frame {
	return &Frame{
		Columns: []Column{{FieldOpen}, {FieldHigh}, {FieldLow}, {FieldClose}, {FieldVolume}},
		Index:   make([]Timestamp, 0, capacity),
		Data:    make([][]*float64, 0, capacity),
	}
}

// AppendRow adds one OHLCV row in column order.
func (f *Frame) AppendRow(ts time.Time, open, high, low, closePrice, volume *float64) {
	f.Index = append(f.Index, Timestamp{Time: ts.UTC()})
	f.Data = append(f.Data, []*float64{open, high, low, closePrice, volume})
}
