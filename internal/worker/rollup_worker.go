package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"outlay/internal/amqp"
	"outlay/internal/core"
	"outlay/internal/log"
	"outlay/internal/storage"
)

// RollupWorker maintains the day_summaries table. It rebuilds the
// affected day whenever a change message arrives, and periodically
// sweeps a trailing window to cover messages lost while the broker or
// worker was down.
type RollupWorker struct {
	storage     *storage.SQLiteRepository
	logger      *log.Logger
	windowDays  int
	concurrency int
}

func NewRollupWorker(repo *storage.SQLiteRepository, windowDays int, logger *log.Logger) *RollupWorker {
	if windowDays < 1 {
		windowDays = 1
	}
	return &RollupWorker{
		storage:     repo,
		logger:      logger.WithComponent(log.ComponentWorker),
		windowDays:  windowDays,
		concurrency: 4,
	}
}

// HandleChangeMessage rebuilds the day a change message points at.
func (w *RollupWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	if !core.ValidDate(msg.Date) {
		// Bad date means the message can never be processed. Log and
		// drop rather than requeue forever.
		w.logger.WarnContext(ctx, "change message with invalid date, dropping",
			log.FieldExpenseID, msg.ID,
			log.FieldDate, msg.Date)
		return nil
	}

	if err := w.storage.RebuildDaySummary(ctx, msg.UserID, msg.Date); err != nil {
		return fmt.Errorf("rebuild day summary: %w", err)
	}

	w.logger.InfoContext(ctx, "day summary rebuilt",
		log.FieldOperation, log.OpRollup,
		log.FieldUserID, msg.UserID,
		log.FieldDate, msg.Date)
	return nil
}

// RebuildWindow rebuilds every user-day touched within the trailing
// window, fanning out across a bounded worker group.
func (w *RollupWorker) RebuildWindow(ctx context.Context, now time.Time) error {
	since := now.AddDate(0, 0, -(w.windowDays - 1)).Format(core.DateLayout)

	days, err := w.storage.ActiveDaysSince(ctx, since)
	if err != nil {
		return fmt.Errorf("list active days: %w", err)
	}
	if len(days) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, day := range days {
		g.Go(func() error {
			if err := w.storage.RebuildDaySummary(ctx, day.UserID, day.Date); err != nil {
				return fmt.Errorf("rebuild %s for user %d: %w", day.Date, day.UserID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "rollup window rebuilt",
		log.FieldOperation, log.OpRollup,
		"days", len(days),
		log.FieldStartDate, since)
	return nil
}

// Run consumes change messages and sweeps the window on a ticker until
// the context is cancelled.
func (w *RollupWorker) Run(ctx context.Context, client *amqp.Client, interval time.Duration) error {
	// Catch up before consuming so a long outage is repaired promptly.
	if err := w.RebuildWindow(ctx, time.Now()); err != nil {
		w.logger.ErrorContext(ctx, "startup rollup sweep", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeExpenseChanges(ctx, func(msg *amqp.ExpenseChangedMessage) error {
			return w.HandleChangeMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.RebuildWindow(ctx, time.Now()); err != nil {
					w.logger.ErrorContext(ctx, "periodic rollup sweep", log.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}
