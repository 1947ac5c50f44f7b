package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"outlay/internal/core"
)

// ExpenseInput is one expense as entered in a form. The amount is the
// raw string; it is parsed and validated before any network call.
type ExpenseInput struct {
	Amount      string
	Category    string
	Date        string
	Description string
}

// parse validates the input client-side and returns the wire body.
func (in ExpenseInput) parse() (map[string]any, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, core.ErrEmptyCategory
	}
	if !core.ValidDate(in.Date) {
		return nil, core.ErrInvalidDate
	}
	return map[string]any{
		"amount":      core.Money{Cents: cents}.Float(),
		"category":    strings.TrimSpace(in.Category),
		"date":        in.Date,
		"description": strings.TrimSpace(in.Description),
	}, nil
}

// Login exchanges a Google ID token for an application session. The
// session is only established when the exchange succeeds.
func (c *Client) Login(ctx context.Context, credential string) (int64, error) {
	var resp struct {
		UserID int64  `json:"userId"`
		Token  string `json:"token"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/oauth/google", map[string]string{"credential": credential}, &resp)
	if err != nil {
		return 0, err
	}
	c.session.Establish(resp.UserID, resp.Token)
	return resp.UserID, nil
}

// Logout clears the session.
func (c *Client) Logout() {
	c.session.Clear()
}

// AddExpense creates one expense and returns its id.
func (c *Client) AddExpense(ctx context.Context, in ExpenseInput) (int64, error) {
	body, err := in.parse()
	if err != nil {
		return 0, err
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/expenses", body, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// ListExpenses fetches the session user's expenses. The server narrows
// by date range; the substring predicates run locally through the same
// pass the server uses, so an older server that ignores them still
// yields correct results.
func (c *Client) ListExpenses(ctx context.Context, criteria core.Criteria) ([]core.Expense, error) {
	path := "/expenses"
	if q := criteria.Values().Encode(); q != "" {
		path += "?" + q
	}

	var resp struct {
		Expenses []wireExpense `json:"expenses"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	expenses := make([]core.Expense, len(resp.Expenses))
	for i, w := range resp.Expenses {
		expenses[i] = w.toExpense()
	}
	return core.Filter(expenses, criteria), nil
}

// UpdateExpense replaces the expense with the given id.
func (c *Client) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) error {
	body, err := in.parse()
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/expenses/%d", id), body, nil)
}

// DeleteExpense removes the expense with the given id.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/expenses/%d", id), nil, nil)
}

// Summary fetches period totals. An empty period asks for the server
// default (month); a non-empty range bound replaces the corresponding
// side of the range the period resolves to.
func (c *Client) Summary(ctx context.Context, period string, rng core.DateRange) ([]core.PeriodTotal, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if rng.Start != "" {
		q.Set("startDate", rng.Start)
	}
	if rng.End != "" {
		q.Set("endDate", rng.End)
	}
	path := "/expenses/summary"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var resp struct {
		Summaries []struct {
			Period string  `json:"period"`
			Total  float64 `json:"total"`
		} `json:"summaries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	totals := make([]core.PeriodTotal, len(resp.Summaries))
	for i, s := range resp.Summaries {
		totals[i] = core.PeriodTotal{
			Period: s.Period,
			Total:  core.Money{Cents: int64(s.Total*100 + 0.5)},
		}
	}
	return totals, nil
}

// User is one registered account as listed by the server.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Users lists all registered users.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}
