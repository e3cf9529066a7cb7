package quantity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStockRoundsHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2.4995", "2.500"},
		{"2.4994", "2.499"},
		{"0.0005", "0.001"},
		{"10", "10"},
		{"7.5", "7.5"},
	}
	for _, tc := range cases {
		got := Stock(decimal.RequireFromString(tc.in))
		require.True(t, got.Equal(decimal.RequireFromString(tc.want)), "Stock(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestMoneyRoundsHalfUp(t *testing.T) {
	got := Money(decimal.RequireFromString("12.345"))
	require.True(t, got.Equal(decimal.RequireFromString("12.35")))

	got = Money(decimal.RequireFromString("12.344"))
	require.True(t, got.Equal(decimal.RequireFromString("12.34")))
}

func TestQuantizeIdempotent(t *testing.T) {
	// Re-quantizing an already quantized value must yield the identical value.
	for _, s := range []string{"0.001", "7.500", "123.456", "0.000"} {
		d := Stock(decimal.RequireFromString(s))
		require.True(t, Stock(d).Equal(d))
	}
	m := Money(decimal.RequireFromString("99.99"))
	require.True(t, Money(m).Equal(m))
}

func TestParse(t *testing.T) {
	d, err := Parse(" 2,500 ")
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString("2.500")))

	d, err = Parse("0.125")
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString("0.125")))

	_, err = Parse("abc")
	require.ErrorIs(t, err, ErrNotANumber)

	_, err = Parse("")
	require.ErrorIs(t, err, ErrNotANumber)
}

func TestIsWhole(t *testing.T) {
	require.True(t, IsWhole(decimal.RequireFromString("5")))
	require.True(t, IsWhole(decimal.RequireFromString("5.000")))
	require.False(t, IsWhole(decimal.RequireFromString("5.5")))
}

func TestHoursBetween(t *testing.T) {
	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(2*time.Hour + 30*time.Minute)
	require.True(t, HoursBetween(start, end).Equal(decimal.RequireFromString("2.50")))

	end = start.Add(45 * time.Minute)
	require.True(t, HoursBetween(start, end).Equal(decimal.RequireFromString("0.75")))

	// 100 minutes = 1.666... hours, rounds half up at two decimals.
	end = start.Add(100 * time.Minute)
	require.True(t, HoursBetween(start, end).Equal(decimal.RequireFromString("1.67")))
}
