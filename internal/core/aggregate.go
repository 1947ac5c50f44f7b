package core

import (
	"fmt"
	"time"
)

type (
	// Stats summarizes a filtered expense collection over a date range.
	Stats struct {
		Total     Money
		Count     int
		AvgPerDay float64
	}

	// DayTotal is the per-date sum the storage layer produces.
	DayTotal struct {
		Date  string // YYYY-MM-DD
		Total Money
	}

	// PeriodTotal is one summary bucket, keyed by the bucket's first date.
	PeriodTotal struct {
		Period string // YYYY-MM-DD
		Total  Money
	}
)

// Aggregate computes total, count and average-per-day for expenses over the
// inclusive [start, end] range. The day count floors at 1, so a zero-length
// or inverted range never divides by zero.
func Aggregate(expenses []Expense, start, end string) Stats {
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
	}
	s := Stats{
		Total: Money{Cents: total},
		Count: len(expenses),
	}
	s.AvgPerDay = s.Total.Float() / float64(DaysBetween(start, end))
	return s
}

// DaysBetween returns the inclusive day count of [start, end]: the ceiling
// of the millisecond difference over a day length, plus one, floored at 1.
// Unparseable bounds also collapse to 1.
func DaysBetween(start, end string) int {
	s, err1 := time.Parse(DateLayout, start)
	e, err2 := time.Parse(DateLayout, end)
	if err1 != nil || err2 != nil {
		return 1
	}
	const dayMs = 24 * 60 * 60 * 1000
	diffMs := e.Sub(s).Milliseconds()
	days := int((diffMs+dayMs-1)/dayMs) + 1
	if days < 1 {
		return 1
	}
	return days
}

// BucketTotals groups per-date sums into period buckets. Input must be
// sorted by date ascending; output preserves that order with one entry per
// bucket, keyed by the bucket's first calendar date. Unrecognized periods
// bucket per date.
func BucketTotals(period string, days []DayTotal) []PeriodTotal {
	var out []PeriodTotal
	index := make(map[string]int)
	for _, d := range days {
		key := bucketStart(period, d.Date)
		if i, ok := index[key]; ok {
			out[i].Total.Cents += d.Total.Cents
			continue
		}
		index[key] = len(out)
		out = append(out, PeriodTotal{Period: key, Total: d.Total})
	}
	return out
}

func bucketStart(period, date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	switch period {
	case PeriodMonth:
		return fmt.Sprintf("%04d-%02d-01", t.Year(), int(t.Month()))
	case PeriodQuarter:
		q := (int(t.Month())-1)/3*3 + 1
		return fmt.Sprintf("%04d-%02d-01", t.Year(), q)
	case PeriodYear:
		return fmt.Sprintf("%04d-01-01", t.Year())
	default:
		return date
	}
}
