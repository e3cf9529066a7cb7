// Package quantity centralises fixed-point arithmetic for stock and pay
// values. Every quantity that reaches the ledger goes through these helpers;
// float64 is never used on that path.
package quantity

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// StockScale is the precision for stock quantities and movements.
	StockScale = 3
	// MoneyScale is the precision for piece rates and pay totals.
	MoneyScale = 2
	// HoursScale is the precision for worked hours.
	HoursScale = 2
)

// ErrNotANumber indicates input that does not parse as a decimal.
var ErrNotANumber = errors.New("quantity: not a decimal number")

// Stock quantizes to three decimals, rounding half up.
func Stock(d decimal.Decimal) decimal.Decimal {
	return d.Round(StockScale)
}

// Money quantizes to two decimals, rounding half up.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Hours quantizes to two decimals, rounding half up.
func Hours(d decimal.Decimal) decimal.Decimal {
	return d.Round(HoursScale)
}

// Parse converts user input directly into a decimal. Commas are accepted as
// decimal separators because shop-floor keyboards produce them. The value
// never round-trips through binary floating point.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Decimal{}, ErrNotANumber
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrNotANumber
	}
	return d, nil
}

// IsWhole reports whether d has no fractional part.
func IsWhole(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

// HoursBetween returns (end - start) in hours at two decimals.
// The caller guarantees end is after start.
func HoursBetween(start, end time.Time) decimal.Decimal {
	millis := decimal.NewFromInt(end.Sub(start).Milliseconds())
	return Hours(millis.Div(decimal.NewFromInt(3_600_000)))
}
