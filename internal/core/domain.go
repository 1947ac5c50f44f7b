package core

import (
	"errors"
	"strings"
	"time"
)

const (
	MaxCategoryLen    = 50
	MaxDescriptionLen = 200

	// DateLayout is the wire format for calendar dates. It sorts
	// lexicographically in chronological order, which the filter
	// predicates rely on.
	DateLayout = "2006-01-02"
)

type (
	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		UserID      int64
		Amount      Money
		Category    string
		Date        string // YYYY-MM-DD, no time component
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	User struct {
		ID        int64
		GoogleID  string
		Email     string
		Name      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrCategoryTooLong    = errors.New("category too long")
	ErrInvalidDate        = errors.New("invalid date, use YYYY-MM-DD")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInvalidUser        = errors.New("invalid user")
)

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.UserID <= 0 {
		return ErrInvalidUser
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Category) > MaxCategoryLen {
		return ErrCategoryTooLong
	}
	if !ValidDate(e.Date) {
		return ErrInvalidDate
	}
	if len(e.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}
