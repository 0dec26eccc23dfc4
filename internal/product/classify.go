package product

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// LowPriceThreshold and LowStockThreshold together define the cheap,
	// low-stock rule: price < 5.00 and stock < 10 is skipped.
	LowPriceThreshold = 5.00
	LowStockThreshold = 10

	// MaxPrice is the highest importable price. Anything above is skipped.
	MaxPrice = 1000.00

	// DiscontinuedMarker is the only value of the discontinued column that
	// marks a product as discontinued. Comparison is case-sensitive.
	DiscontinuedMarker = "yes"
)

// ShouldSkip reports whether the business rules exclude a record from import.
func ShouldSkip(r RawRecord) bool {
	price := ParsePrice(r.Get(ColumnPrice))
	stock := ParseStockLevel(r.Get(ColumnStockLevel))

	if price < LowPriceThreshold && stock < LowStockThreshold {
		return true
	}
	return price > MaxPrice
}

// DiscontinuedAt returns now when the record is marked discontinued, nil otherwise.
func DiscontinuedAt(r RawRecord, now func() time.Time) *time.Time {
	if r.Get(ColumnDiscontinued) != DiscontinuedMarker {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	t := now()
	return &t
}

// BuildDraft converts a kept record into a Draft. Text fields are copied verbatim.
func BuildDraft(r RawRecord, now func() time.Time) Draft {
	return Draft{
		Name:           r.Get(ColumnName),
		Description:    r.Get(ColumnDescription),
		StockLevel:     ParseStockLevel(r.Get(ColumnStockLevel)),
		Price:          ParsePrice(r.Get(ColumnPrice)),
		DiscontinuedAt: DiscontinuedAt(r, now),
	}
}

// ParsePrice parses a price cell. Empty or non-numeric input yields 0.
// NaN and infinities are not prices and also yield 0.
func ParsePrice(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseStockLevel parses a stock cell. Empty or non-numeric input yields 0.
// Decimal values are truncated toward zero ("15.7" -> 15). Values outside the
// int32 range of the stock_level column also yield 0, whatever their notation.
func ParseStockLevel(s string) int {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(i)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
