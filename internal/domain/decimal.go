package domain

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
)

// Decimal wraps apd.Decimal for prices and rates.
type Decimal struct {
	apd.Decimal
}

// NewDecimalFromFloat creates a Decimal from the shortest representation of v.
// NaN and infinities are rejected; upstream tables use them for missing cells.
func NewDecimalFromFloat(v float64) (Decimal, error) {
	d := Decimal{}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return d, fmt.Errorf("invalid decimal float %v", v)
	}
	if _, err := d.SetFloat64(v); err != nil {
		return d, fmt.Errorf("invalid decimal float %v: %w", v, err)
	}
	return d, nil
}

// String implements the fmt.Stringer interface.
func (d Decimal) String() string {
	return d.Decimal.Text('f')
}

// MarshalJSON implements the json.Marshaler interface.
// Values are emitted as bare JSON numbers.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}
