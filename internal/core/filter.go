package core

import (
	"net/url"
	"strconv"
	"strings"
)

// CategoryAll is the sentinel a category filter may carry to mean "no
// category restriction". The long form is what the browser's category
// picker submits.
const (
	CategoryAll     = "all"
	CategoryAllLong = "all categories"
)

// Criteria holds expense filter criteria. The same value shapes the
// server-side query (Values) and the in-memory pass (Matches), so the two
// filtering paths cannot diverge. Empty fields are unrestricted.
type Criteria struct {
	UserID     int64
	StartDate  string // YYYY-MM-DD, inclusive
	EndDate    string // YYYY-MM-DD, inclusive
	Category   string
	SearchText string
}

// Matches reports whether e satisfies every set predicate: category,
// free-text search, and date range (logical AND).
func (c Criteria) Matches(e Expense) bool {
	return c.matchesCategory(e) && c.matchesSearch(e) && c.matchesDate(e)
}

func (c Criteria) matchesCategory(e Expense) bool {
	cat := strings.TrimSpace(c.Category)
	if cat == "" || strings.EqualFold(cat, CategoryAll) || strings.EqualFold(cat, CategoryAllLong) {
		return true
	}
	return containsFold(e.Category, cat)
}

func (c Criteria) matchesSearch(e Expense) bool {
	if c.SearchText == "" {
		return true
	}
	return containsFold(e.Description, c.SearchText) || containsFold(e.Category, c.SearchText)
}

// matchesDate compares YYYY-MM-DD strings lexicographically, which orders
// the same as chronologically for that layout. Empty bounds are open.
func (c Criteria) matchesDate(e Expense) bool {
	if c.StartDate != "" && e.Date < c.StartDate {
		return false
	}
	if c.EndDate != "" && e.Date > c.EndDate {
		return false
	}
	return true
}

// Values renders the criteria as query parameters for the list endpoint.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	if c.UserID > 0 {
		v.Set("userId", strconv.FormatInt(c.UserID, 10))
	}
	if c.StartDate != "" {
		v.Set("startDate", c.StartDate)
	}
	if c.EndDate != "" {
		v.Set("endDate", c.EndDate)
	}
	if c.Category != "" {
		v.Set("category", c.Category)
	}
	if c.SearchText != "" {
		v.Set("searchText", c.SearchText)
	}
	return v
}

// Filter returns the expenses matching c, preserving order.
func Filter(expenses []Expense, c Criteria) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
