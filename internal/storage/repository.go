package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"outlay/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row targeted by id does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateExpense inserts a validated expense and returns its id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, date, description, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP) RETURNING id`,
		e.UserID, e.Amount.Cents, e.Category, e.Date, e.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"date", e.Date)

	return id, nil
}

// GetExpense retrieves a single expense by id, scoped to its owner.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	var e core.Expense
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, category, date, description, created_at, updated_at
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Date, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListQuery narrows the expense scan server-side. Substring predicates
// (category, search text) are applied by core.Filter on the result so that
// both filtering paths share one implementation.
type ListQuery struct {
	UserID    int64
	ID        int64  // optional, single-record fetch for the edit form
	StartDate string // optional, inclusive
	EndDate   string // optional, inclusive
}

// ListExpenses returns expenses for a user ordered by date then id.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, q ListQuery) ([]core.Expense, error) {
	query := `SELECT id, user_id, amount_cents, category, date, description, created_at, updated_at
	          FROM expenses WHERE user_id = ?`
	args := []any{q.UserID}

	if q.ID > 0 {
		query += " AND id = ?"
		args = append(args, q.ID)
	}
	if q.StartDate != "" {
		query += " AND date >= ?"
		args = append(args, q.StartDate)
	}
	if q.EndDate != "" {
		query += " AND date <= ?"
		args = append(args, q.EndDate)
	}
	query += " ORDER BY date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Date, &e.Description, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// UpdateExpense replaces every mutable field of the expense, scoped to its owner.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, category = ?, date = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		e.Amount.Cents, e.Category, e.Date, e.Description, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpense removes an expense, scoped to its owner.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DayTotals returns per-date expense sums for a user within [start, end],
// ordered by date ascending. The summary endpoint buckets these in core.
func (r *SQLiteRepository) DayTotals(ctx context.Context, userID int64, start, end string) ([]core.DayTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, SUM(amount_cents) FROM expenses
		 WHERE user_id = ? AND date BETWEEN ? AND ?
		 GROUP BY date ORDER BY date`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("day totals: %w", err)
	}
	defer rows.Close()

	var totals []core.DayTotal
	for rows.Next() {
		var d core.DayTotal
		if err := rows.Scan(&d.Date, &d.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan day total: %w", err)
		}
		totals = append(totals, d)
	}
	return totals, rows.Err()
}

// UpsertUserByGoogleID creates the user on first login and refreshes
// name/email on subsequent ones.
func (r *SQLiteRepository) UpsertUserByGoogleID(ctx context.Context, googleID, email, name string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (google_id, email, name)
		 VALUES (?, ?, ?)
		 ON CONFLICT(google_id) DO UPDATE
		 SET email = excluded.email, name = excluded.name, updated_at = CURRENT_TIMESTAMP
		 RETURNING id, google_id, email, name, created_at, updated_at`,
		googleID, email, name).
		Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}

	slog.InfoContext(ctx, "User upserted", "user_id", u.ID, "email", u.Email)
	return u, nil
}

// UpdateUserProfile updates a user's email and name. Empty fields keep
// their current value.
func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, id int64, email, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email = COALESCE(NULLIF(?, ''), email),
		     name = COALESCE(NULLIF(?, ''), name),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, email, name, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all registered users.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, google_id, email, name, created_at, updated_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DaySummary is one maintained rollup row.
type DaySummary struct {
	UserID       int64
	Date         string
	TotalCents   int64
	ExpenseCount int64
}

// RebuildDaySummary recomputes the rollup row for one user/date pair from
// the live expense table. A date with no expenses keeps an explicit zero row.
func (r *SQLiteRepository) RebuildDaySummary(ctx context.Context, userID int64, date string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO day_summaries (user_id, date, total_cents, expense_count, updated_at)
		 SELECT ?, ?, COALESCE(SUM(amount_cents), 0), COUNT(*), CURRENT_TIMESTAMP
		 FROM expenses WHERE user_id = ? AND date = ?
		 ON CONFLICT(user_id, date) DO UPDATE
		 SET total_cents = excluded.total_cents,
		     expense_count = excluded.expense_count,
		     updated_at = excluded.updated_at`,
		userID, date, userID, date)
	if err != nil {
		return fmt.Errorf("rebuild day summary: %w", err)
	}
	return nil
}

// GetDaySummary reads one rollup row.
func (r *SQLiteRepository) GetDaySummary(ctx context.Context, userID int64, date string) (DaySummary, error) {
	var s DaySummary
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, date, total_cents, expense_count FROM day_summaries
		 WHERE user_id = ? AND date = ?`, userID, date).
		Scan(&s.UserID, &s.Date, &s.TotalCents, &s.ExpenseCount)
	if errors.Is(err, sql.ErrNoRows) {
		return DaySummary{}, ErrNotFound
	}
	if err != nil {
		return DaySummary{}, fmt.Errorf("get day summary: %w", err)
	}
	return s, nil
}

// ActiveDay is a user/date pair that has at least one expense.
type ActiveDay struct {
	UserID int64
	Date   string
}

// ActiveDaysSince lists distinct user/date pairs with expenses on or after
// the given date. The rollup worker walks these on its periodic rebuild.
func (r *SQLiteRepository) ActiveDaysSince(ctx context.Context, since string) ([]ActiveDay, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id, date FROM expenses WHERE date >= ? ORDER BY user_id, date`, since)
	if err != nil {
		return nil, fmt.Errorf("active days: %w", err)
	}
	defer rows.Close()

	var days []ActiveDay
	for rows.Next() {
		var d ActiveDay
		if err := rows.Scan(&d.UserID, &d.Date); err != nil {
			return nil, fmt.Errorf("scan active day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
