package client

import (
	"context"
	"errors"
)

// ErrAborted marks bulk rows that were never attempted because an
// earlier row failed.
var ErrAborted = errors.New("aborted after earlier failure")

// BulkRow is one line of a bulk entry form.
type BulkRow struct {
	Amount      string
	Category    string
	Description string
}

// BulkResult reports the outcome for one row.
type BulkResult struct {
	Index int
	ID    int64
	Err   error
}

// BulkCreate submits rows one at a time for the given date, stopping at
// the first failure. Every row gets a result, so the caller can tell
// exactly which expenses were created before the stop.
func (c *Client) BulkCreate(ctx context.Context, date string, rows []BulkRow) []BulkResult {
	results := make([]BulkResult, len(rows))
	failed := false
	for i, row := range rows {
		results[i].Index = i
		if failed {
			results[i].Err = ErrAborted
			continue
		}

		id, err := c.AddExpense(ctx, ExpenseInput{
			Amount:      row.Amount,
			Category:    row.Category,
			Date:        date,
			Description: row.Description,
		})
		if err != nil {
			results[i].Err = err
			failed = true
			continue
		}
		results[i].ID = id
	}
	return results
}
