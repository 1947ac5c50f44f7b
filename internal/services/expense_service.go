package services

import (
	"context"
	"fmt"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/cache"
	"outlay/internal/core"
	"outlay/internal/log"
	"outlay/internal/storage"
)

// ExpenseService orchestrates expense operations across SQLite and AMQP.
// Writes land in SQLite first; change messages are published best-effort
// so a broker outage never fails a request.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	summaries  *cache.LRUCache[[]core.PeriodTotal]
	logger     *log.Logger
}

func NewExpenseService(repo *storage.SQLiteRepository, amqpClient *amqp.Client, summaryCacheSize int, summaryCacheTTL time.Duration, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		storage:    repo,
		amqpClient: amqpClient,
		summaries:  cache.NewLRUCache[[]core.PeriodTotal](summaryCacheSize, summaryCacheTTL),
		logger:     logger.WithComponent(log.ComponentExpense),
	}
}

// SummaryCache exposes the cache for cleanup registration.
func (s *ExpenseService) SummaryCache() *cache.LRUCache[[]core.PeriodTotal] {
	return s.summaries
}

// Create validates and saves an expense, then publishes a change message.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.publishChange(ctx, e.ID, e.UserID, e.Date, amqp.ChangeCreate)
	s.invalidateSummaries(e.UserID)

	return e, nil
}

// Get retrieves a single expense scoped to its owner.
func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, userID, id)
}

// List returns the user's expenses matching the criteria. SQLite narrows
// by user and date range; the substring predicates run through the same
// in-memory pass the browser-facing filter uses.
func (s *ExpenseService) List(ctx context.Context, c core.Criteria) ([]core.Expense, error) {
	expenses, err := s.storage.ListExpenses(ctx, storage.ListQuery{
		UserID:    c.UserID,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return core.Filter(expenses, c), nil
}

// Update replaces an expense. When the date moves, both the old and the
// new day get a change message so the rollup worker rebuilds each.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	previous, err := s.storage.GetExpense(ctx, e.UserID, e.ID)
	if err != nil {
		return err
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return err
	}

	s.publishChange(ctx, e.ID, e.UserID, e.Date, amqp.ChangeUpdate)
	if previous.Date != e.Date {
		s.publishChange(ctx, e.ID, e.UserID, previous.Date, amqp.ChangeUpdate)
	}
	s.invalidateSummaries(e.UserID)

	return nil
}

// Delete removes an expense scoped to its owner.
func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	previous, err := s.storage.GetExpense(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}

	s.publishChange(ctx, id, userID, previous.Date, amqp.ChangeDelete)
	s.invalidateSummaries(userID)

	return nil
}

// Summary returns period totals over the given range. Callers resolve
// the range first, so an explicit start/end can replace the one the
// period name implies. Results are cached per user until the next write.
func (s *ExpenseService) Summary(ctx context.Context, userID int64, period string, r core.DateRange) ([]core.PeriodTotal, error) {
	key := summaryKey(userID, period, r)
	if totals, ok := s.summaries.Get(key); ok {
		return totals, nil
	}

	days, err := s.storage.DayTotals(ctx, userID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("summarize expenses: %w", err)
	}

	totals := core.BucketTotals(period, days)
	s.summaries.Set(key, totals)
	return totals, nil
}

// Users lists all registered users.
func (s *ExpenseService) Users(ctx context.Context) ([]core.User, error) {
	return s.storage.ListUsers(ctx)
}

func (s *ExpenseService) publishChange(ctx context.Context, id, userID int64, date, op string) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewExpenseChangedMessage(id, userID, date, op)
	if err := s.amqpClient.PublishExpenseChanged(ctx, msg); err != nil {
		// The expense is already saved. The periodic rollup pass
		// covers the missed message.
		s.logger.ErrorContext(ctx, "publish change message",
			log.FieldError, err,
			log.FieldExpenseID, id,
			log.FieldOperation, op)
	}
}

func (s *ExpenseService) invalidateSummaries(userID int64) {
	s.summaries.DeletePrefix(fmt.Sprintf("summary:%d:", userID))
}

func summaryKey(userID int64, period string, r core.DateRange) string {
	return fmt.Sprintf("summary:%d:%s:%s:%s", userID, period, r.Start, r.End)
}

// Close closes both storage and AMQP connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
