package client

import (
	"context"
	"sync"
	"time"

	"outlay/internal/core"
)

// DefaultDebounce is the quiescence window before a criteria change
// triggers a fetch.
const DefaultDebounce = 300 * time.Millisecond

// FetchResult is one delivered list response.
type FetchResult struct {
	Criteria core.Criteria
	Expenses []core.Expense
	Err      error
}

// Stats aggregates the delivered expenses for display alongside the
// list. A missing range bound falls back to the earliest or latest
// expense date, so an unfiltered list still averages over the days it
// actually spans.
func (r FetchResult) Stats() core.Stats {
	start, end := r.Criteria.StartDate, r.Criteria.EndDate
	if start == "" || end == "" {
		var minDate, maxDate string
		for _, e := range r.Expenses {
			if minDate == "" || e.Date < minDate {
				minDate = e.Date
			}
			if maxDate == "" || e.Date > maxDate {
				maxDate = e.Date
			}
		}
		if start == "" {
			start = minDate
		}
		if end == "" {
			end = maxDate
		}
	}
	return core.Aggregate(r.Expenses, start, end)
}

// ListFetcher turns a stream of criteria changes into list fetches.
// Changes within the debounce window coalesce into one request, and a
// response is delivered only when no newer fetch has been issued, so a
// slow early response can never overwrite a later one.
type ListFetcher struct {
	fetch    func(context.Context, core.Criteria) ([]core.Expense, error)
	onResult func(FetchResult)
	delay    time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	criteria  core.Criteria
	seq       uint64
	delivered uint64
	closed    bool

	// deliverMu serializes the staleness check with the onResult call,
	// so a response that passes the check cannot land after a newer one.
	deliverMu sync.Mutex
}

// FetcherOption configures a ListFetcher.
type FetcherOption func(*ListFetcher)

// WithDebounce overrides the quiescence window.
func WithDebounce(d time.Duration) FetcherOption {
	return func(f *ListFetcher) { f.delay = d }
}

// NewListFetcher builds a fetcher around the client's list call.
func (c *Client) NewListFetcher(onResult func(FetchResult), opts ...FetcherOption) *ListFetcher {
	return newListFetcher(c.ListExpenses, onResult, opts...)
}

func newListFetcher(fetch func(context.Context, core.Criteria) ([]core.Expense, error), onResult func(FetchResult), opts ...FetcherOption) *ListFetcher {
	f := &ListFetcher{
		fetch:    fetch,
		onResult: onResult,
		delay:    DefaultDebounce,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetCriteria records a criteria change and restarts the debounce
// timer. Only the last value set before the window elapses is fetched.
func (f *ListFetcher) SetCriteria(c core.Criteria) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.criteria = c
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, f.fire)
}

// fire issues the fetch for the latest criteria with a fresh sequence.
func (f *ListFetcher) fire() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.seq++
	seq := f.seq
	criteria := f.criteria
	f.mu.Unlock()

	go func() {
		expenses, err := f.fetch(context.Background(), criteria)

		f.deliverMu.Lock()
		defer f.deliverMu.Unlock()

		f.mu.Lock()
		stale := f.closed || seq != f.seq || seq <= f.delivered
		if !stale {
			f.delivered = seq
		}
		f.mu.Unlock()
		if stale {
			return
		}
		f.onResult(FetchResult{Criteria: criteria, Expenses: expenses, Err: err})
	}()
}

// Flush cancels any pending timer and issues the fetch immediately.
func (f *ListFetcher) Flush() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	f.fire()
}

// Close cancels any pending fetch; in-flight responses are discarded.
func (f *ListFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
