package core

import "time"

// Period tags accepted by the summary endpoints and the range resolver.
const (
	PeriodDay     = "day"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// DateRange is an inclusive start/end pair of YYYY-MM-DD strings.
type DateRange struct {
	Start string
	End   string
}

// ValidPeriod reports whether p is one of the recognized period tags.
func ValidPeriod(p string) bool {
	switch p {
	case PeriodDay, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// ResolveRange maps a period tag to a concrete inclusive date range anchored
// at now, in now's location.
//
//   - "day":     first of the current month through today. The tag is
//     month-to-date in practice; the name is kept for wire compatibility.
//   - "month":   first through last day of the current month.
//   - "quarter": the 3-month block containing now (Jan-Mar, Apr-Jun, ...).
//   - "year":    Jan 1 through Dec 31 of the current year.
//
// Unrecognized tags resolve to a single-day range of today, without error.
func ResolveRange(period string, now time.Time) DateRange {
	year, month, _ := now.Date()
	loc := now.Location()

	var start, end time.Time
	switch period {
	case PeriodDay:
		start = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		end = now
	case PeriodMonth:
		start = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		end = time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	case PeriodQuarter:
		qStart := time.Month((int(month)-1)/3*3 + 1)
		start = time.Date(year, qStart, 1, 0, 0, 0, 0, loc)
		end = time.Date(year, qStart+3, 0, 0, 0, 0, 0, loc)
	case PeriodYear:
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(year, time.December, 31, 0, 0, 0, 0, loc)
	default:
		start, end = now, now
	}

	return DateRange{
		Start: start.Format(DateLayout),
		End:   end.Format(DateLayout),
	}
}
