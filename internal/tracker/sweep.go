package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cartwatch/internal/core"
)

// ItemChecker is what the sweep dispatches each eligible item to.
type ItemChecker interface {
	CheckItem(ctx context.Context, item core.CartItem) (Outcome, error)
}

// Sweeper walks every eligible cart item and runs a price check on each.
// Items are processed sequentially; one item's failure never stops the rest.
type Sweeper struct {
	store   Store
	checker ItemChecker
}

func NewSweeper(store Store, checker ItemChecker) *Sweeper {
	return &Sweeper{
		store:   store,
		checker: checker,
	}
}

// Run performs one full sweep. It returns an error only when the eligible
// set cannot be listed; per-item failures are recorded against the item as
// ERROR_CRON_PROCESSING and logged.
func (s *Sweeper) Run(ctx context.Context) error {
	items, err := s.store.ListTrackable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list trackable items: %w", err)
	}

	slog.InfoContext(ctx, "Price sweep started", "items", len(items))

	var failed int
	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.dispatch(ctx, item); err != nil {
			failed++
			slog.ErrorContext(ctx, "Price check failed during sweep",
				"item_id", item.ID, "error", err)
			s.recordDispatchFailure(ctx, item.ID)
		}
	}

	slog.InfoContext(ctx, "Price sweep completed",
		"items", len(items), "failed", failed)
	return nil
}

// dispatch wraps a single item check so that a panic in the check path is
// converted into an error for the sweep loop to record.
func (s *Sweeper) dispatch(ctx context.Context, item core.CartItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("price check panicked: %v", r)
		}
	}()

	_, err = s.checker.CheckItem(ctx, item)
	return err
}

// recordDispatchFailure marks the item so the failure is visible to the
// user. Best effort; the item will be retried on the next sweep either way.
func (s *Sweeper) recordDispatchFailure(ctx context.Context, id int64) {
	if _, err := s.store.RecordPriceCheck(ctx, id, nil, core.StatusErrorCronProcessing, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Failed to record sweep failure",
			"item_id", id, "error", err)
	}
}
