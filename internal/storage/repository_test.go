package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cartwatch/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "cartwatch.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func fp(v float64) *float64 { return &v }

func TestExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateExpense(ctx, core.Expense{
		Name:     "Rice cooker",
		Amount:   core.Money{Cents: 249900},
		Category: "Kitchen",
		Date:     time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	got, err := repo.GetExpense(ctx, id)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Name != "Rice cooker" || got.Amount.Cents != 249900 || got.IsPurchased {
		t.Errorf("unexpected expense: %+v", got)
	}
	if got.Date.Format("2006-01-02") != "2026-05-02" {
		t.Errorf("date round-trip = %v", got.Date)
	}

	if err := repo.SetExpensePurchased(ctx, id, true); err != nil {
		t.Fatalf("SetExpensePurchased: %v", err)
	}
	unpurchased, err := repo.ListUnpurchasedExpenses(ctx)
	if err != nil {
		t.Fatalf("ListUnpurchasedExpenses: %v", err)
	}
	if len(unpurchased) != 0 {
		t.Errorf("expected no unpurchased expenses, got %d", len(unpurchased))
	}

	if err := repo.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if _, err := repo.GetExpense(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExpense after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteExpense(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestMoveExpenseToCart(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateExpense(ctx, core.Expense{
		Name:     "Desk lamp",
		Amount:   core.Money{Cents: 159900},
		Category: "Home",
		Date:     time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	item, err := repo.MoveExpenseToCart(ctx, id)
	if err != nil {
		t.Fatalf("MoveExpenseToCart: %v", err)
	}
	if item.Name != "Desk lamp" || item.Quantity != 1 {
		t.Errorf("unexpected cart item: %+v", item)
	}
	if item.EstimatedPrice == nil || *item.EstimatedPrice != 1599.00 {
		t.Errorf("estimated price = %v, want 1599.00", item.EstimatedPrice)
	}

	if _, err := repo.GetExpense(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expense still present after move: %v", err)
	}
	stored, err := repo.GetCartItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetCartItem: %v", err)
	}
	if stored.Status != core.StatusNone {
		t.Errorf("moved item status = %q, want untracked", stored.Status)
	}

	// Purchased expenses stay where they are.
	pid, _ := repo.CreateExpense(ctx, core.Expense{
		Name: "Paid already", Amount: core.Money{Cents: 100}, Category: "Misc",
		Date: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), IsPurchased: true,
	})
	if _, err := repo.MoveExpenseToCart(ctx, pid); err == nil {
		t.Error("expected error moving a purchased expense")
	}
}

func TestCreateCartItemTrackingState(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tests := []struct {
		name    string
		url     string
		desired *float64
		want    core.TrackingStatus
	}{
		{name: "both fields", url: "https://www.amazon.in/dp/B0", desired: fp(999), want: core.StatusTracking},
		{name: "url only", url: "https://www.amazon.in/dp/B0", desired: nil, want: core.StatusNone},
		{name: "neither", url: "", desired: nil, want: core.StatusNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := repo.CreateCartItem(ctx, core.CartItem{
				Name: "Widget", Quantity: 1, ProductURL: tt.url, DesiredPrice: tt.desired,
			})
			if err != nil {
				t.Fatalf("CreateCartItem: %v", err)
			}
			got, err := repo.GetCartItem(ctx, id)
			if err != nil {
				t.Fatalf("GetCartItem: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestRecordPriceCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)

	newTrackedItem := func(t *testing.T, repo *SQLiteRepository, desired float64) int64 {
		t.Helper()
		id, err := repo.CreateCartItem(ctx, core.CartItem{
			Name: "Tracked", Quantity: 1,
			ProductURL: "https://www.amazon.in/dp/B0", DesiredPrice: fp(desired),
		})
		if err != nil {
			t.Fatalf("CreateCartItem: %v", err)
		}
		return id
	}

	t.Run("price above desired stays in success class", func(t *testing.T) {
		repo := newTestRepo(t)
		id := newTrackedItem(t, repo, 1000)

		final, err := repo.RecordPriceCheck(ctx, id, fp(1234.56), core.StatusTrackingUpdated, now)
		if err != nil {
			t.Fatalf("RecordPriceCheck: %v", err)
		}
		if final != core.StatusTrackingUpdated {
			t.Errorf("final status = %q, want TRACKING_UPDATED", final)
		}
	})

	t.Run("price at or below desired overrides to below desired", func(t *testing.T) {
		repo := newTestRepo(t)
		id := newTrackedItem(t, repo, 2000)

		final, err := repo.RecordPriceCheck(ctx, id, fp(1234.56), core.StatusTrackingUpdated, now)
		if err != nil {
			t.Fatalf("RecordPriceCheck: %v", err)
		}
		if final != core.StatusBelowDesired {
			t.Errorf("final status = %q, want BELOW_DESIRED", final)
		}

		got, _ := repo.GetCartItem(ctx, id)
		if got.CurrentPrice == nil || *got.CurrentPrice != 1234.56 {
			t.Errorf("current price = %v, want 1234.56", got.CurrentPrice)
		}
		if got.LastChecked == nil || *got.LastChecked != now.UnixMilli() {
			t.Errorf("last checked = %v, want %d", got.LastChecked, now.UnixMilli())
		}
	})

	t.Run("failure during first tracking read degrades to error fetching", func(t *testing.T) {
		repo := newTestRepo(t)
		id := newTrackedItem(t, repo, 1000)

		final, err := repo.RecordPriceCheck(ctx, id, nil, core.StatusErrorFetchingParsing, now)
		if err != nil {
			t.Fatalf("RecordPriceCheck: %v", err)
		}
		if final != core.StatusErrorFetching {
			t.Errorf("final status = %q, want ERROR_FETCHING", final)
		}
	})

	t.Run("failure after a successful read keeps the checker status", func(t *testing.T) {
		repo := newTestRepo(t)
		id := newTrackedItem(t, repo, 1000)

		if _, err := repo.RecordPriceCheck(ctx, id, fp(1500), core.StatusTrackingUpdated, now); err != nil {
			t.Fatalf("first RecordPriceCheck: %v", err)
		}
		final, err := repo.RecordPriceCheck(ctx, id, nil, core.StatusErrorFetchingParsing, now.Add(time.Hour))
		if err != nil {
			t.Fatalf("second RecordPriceCheck: %v", err)
		}
		if final != core.StatusErrorFetchingParsing {
			t.Errorf("final status = %q, want ERROR_FETCHING_OR_PARSING", final)
		}

		got, _ := repo.GetCartItem(ctx, id)
		if got.CurrentPrice != nil {
			t.Errorf("current price = %v, want absent after failed read", got.CurrentPrice)
		}
		if got.LastChecked == nil || *got.LastChecked != now.Add(time.Hour).UnixMilli() {
			t.Error("last checked did not advance on failure")
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		repo := newTestRepo(t)
		if _, err := repo.RecordPriceCheck(ctx, 9999, nil, core.StatusErrorFetching, now); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestListTrackableEligibility(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now()

	tracked, err := repo.CreateCartItem(ctx, core.CartItem{
		Name: "eligible tracking", Quantity: 1,
		ProductURL: "https://www.amazon.in/dp/A", DesiredPrice: fp(100),
	})
	if err != nil {
		t.Fatalf("CreateCartItem: %v", err)
	}

	// No product URL: never eligible.
	if _, err := repo.CreateCartItem(ctx, core.CartItem{Name: "no url", Quantity: 1}); err != nil {
		t.Fatalf("CreateCartItem: %v", err)
	}

	// ERROR_FETCHING stays in rotation.
	errFetching, _ := repo.CreateCartItem(ctx, core.CartItem{
		Name: "error fetching", Quantity: 1,
		ProductURL: "https://www.amazon.in/dp/B", DesiredPrice: fp(100),
	})
	if _, err := repo.RecordPriceCheck(ctx, errFetching, nil, core.StatusErrorFetching, now); err != nil {
		t.Fatalf("RecordPriceCheck: %v", err)
	}

	// ERROR_ACTION_FAILED drops out until the user edits tracking. It can
	// only stick once the item is past its first TRACKING read.
	errAction, _ := repo.CreateCartItem(ctx, core.CartItem{
		Name: "error action", Quantity: 1,
		ProductURL: "https://www.amazon.in/dp/C", DesiredPrice: fp(100),
	})
	if _, err := repo.RecordPriceCheck(ctx, errAction, fp(500), core.StatusTrackingUpdated, now); err != nil {
		t.Fatalf("RecordPriceCheck: %v", err)
	}
	if final, err := repo.RecordPriceCheck(ctx, errAction, nil, core.StatusErrorActionFailed, now); err != nil || final != core.StatusErrorActionFailed {
		t.Fatalf("RecordPriceCheck final = %q err = %v", final, err)
	}

	items, err := repo.ListTrackable(ctx)
	if err != nil {
		t.Fatalf("ListTrackable: %v", err)
	}

	ids := map[int64]bool{}
	for _, it := range items {
		ids[it.ID] = true
	}
	if !ids[tracked] || !ids[errFetching] {
		t.Errorf("expected items %d and %d in candidate set, got %v", tracked, errFetching, ids)
	}
	if ids[errAction] {
		t.Errorf("item %d with ERROR_ACTION_FAILED must be excluded", errAction)
	}
	if len(items) != 2 {
		t.Errorf("candidate set size = %d, want 2", len(items))
	}

	// Editing tracking fields resets state and readmits the item.
	if err := repo.UpdateCartItemTracking(ctx, errAction, "https://www.amazon.in/dp/C", fp(120)); err != nil {
		t.Fatalf("UpdateCartItemTracking: %v", err)
	}
	got, _ := repo.GetCartItem(ctx, errAction)
	if got.Status != core.StatusTracking || got.CurrentPrice != nil || got.LastChecked != nil {
		t.Errorf("tracking edit did not reset state: %+v", got)
	}
	items, _ = repo.ListTrackable(ctx)
	if len(items) != 3 {
		t.Errorf("candidate set size after edit = %d, want 3", len(items))
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	settings, err := repo.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.TotalBudget != nil {
		t.Errorf("expected empty settings, got %+v", settings)
	}

	if err := repo.UpsertBudget(ctx, &core.Money{Cents: 5000000}); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	settings, _ = repo.GetSettings(ctx)
	if settings.TotalBudget == nil || settings.TotalBudget.Cents != 5000000 {
		t.Errorf("budget = %+v, want 5000000 cents", settings.TotalBudget)
	}

	// Upsert with nil clears the budget.
	if err := repo.UpsertBudget(ctx, nil); err != nil {
		t.Fatalf("UpsertBudget(nil): %v", err)
	}
	settings, _ = repo.GetSettings(ctx)
	if settings.TotalBudget != nil {
		t.Errorf("budget after clear = %+v, want nil", settings.TotalBudget)
	}
}
