// Package http provides the REST server and handler implementations.
//
// This file implements utilities for parsing and validating request
// data: JSON bodies, filter criteria from query strings, and path ids.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"outlay/internal/core"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// expenseRequest is the wire shape of a create or update body. The
// amount travels as a decimal number. Any userId field in the body is
// ignored; ownership comes from the bearer token.
type expenseRequest struct {
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// expensePayload is the wire shape of one expense in responses.
type expensePayload struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toPayload(e core.Expense) expensePayload {
	return expensePayload{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount.Float(),
		Category:    e.Category,
		Date:        e.Date,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// decodeJSON parses the request body into dst, rejecting unknown junk
// after the value and oversized bodies.
func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// toExpense validates the request fields and builds a core expense
// owned by the given user.
func (req expenseRequest) toExpense(userID, id int64) (core.Expense, error) {
	amount, err := core.MoneyFromFloat(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:          id,
		UserID:      userID,
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Date:        strings.TrimSpace(req.Date),
		Description: sanitizeInput(req.Description),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// parseCriteria builds filter criteria from the list endpoint's query
// string. The user always comes from the token, never the query.
func parseCriteria(query url.Values, userID int64) core.Criteria {
	return core.Criteria{
		UserID:     userID,
		StartDate:  strings.TrimSpace(query.Get("startDate")),
		EndDate:    strings.TrimSpace(query.Get("endDate")),
		Category:   sanitizeInput(query.Get("category")),
		SearchText: sanitizeInput(query.Get("searchText")),
	}
}

// parseID parses the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	return parsePositiveInt(r.PathValue("id"))
}

func parsePositiveInt(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
