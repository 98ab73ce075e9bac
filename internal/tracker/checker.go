// Package tracker runs price checks against tracked cart items: one-off
// checks triggered by a user, and the periodic sweep over every eligible item.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"cartwatch/internal/amqp"
	"cartwatch/internal/core"
	"cartwatch/internal/scrape"
)

// PageFetcher retrieves raw product page markup.
type PageFetcher interface {
	FetchPage(ctx context.Context, productURL string) (string, error)
}

// Store is the slice of the cart store the tracker writes through.
type Store interface {
	ListTrackable(ctx context.Context) ([]core.CartItem, error)
	RecordPriceCheck(ctx context.Context, id int64, price *float64, status core.TrackingStatus, checkedAt time.Time) (core.TrackingStatus, error)
}

// AlertPublisher receives price drop alerts. May be nil-backed; publish
// failures never fail a check.
type AlertPublisher interface {
	PublishPriceAlert(ctx context.Context, msg *amqp.PriceAlertMessage) error
}

// Outcome is the structured result of one price check. Success means a price
// was observed; the status is the final persisted one, after the store's
// threshold refinement.
type Outcome struct {
	Success bool
	Status  core.TrackingStatus
	Price   *float64
}

type Checker struct {
	fetcher PageFetcher
	store   Store
	alerts  AlertPublisher
}

func NewChecker(fetcher PageFetcher, store Store, alerts AlertPublisher) *Checker {
	return &Checker{
		fetcher: fetcher,
		store:   store,
		alerts:  alerts,
	}
}

// CheckItem fetches, extracts, and persists the item's price fields exactly
// once, whatever the fetch/extract path did. The write advances the item's
// last-checked timestamp on every invocation. Fetch and extraction failures
// are absorbed into the persisted status; only a persistence failure is
// returned as an error.
func (c *Checker) CheckItem(ctx context.Context, item core.CartItem) (Outcome, error) {
	price, status := c.readPrice(ctx, item.ProductURL)

	final, err := c.store.RecordPriceCheck(ctx, item.ID, price, status, time.Now())
	if err != nil {
		return Outcome{}, err
	}

	if final == core.StatusBelowDesired {
		c.publishAlert(ctx, item, price)
	}

	slog.InfoContext(ctx, "Price check completed",
		"item_id", item.ID,
		"url", item.ProductURL,
		"status", final,
		"price", priceValue(price))

	return Outcome{
		Success: price != nil,
		Status:  final,
		Price:   price,
	}, nil
}

// readPrice never returns an error: every failure maps to the status class
// the store should record. A panic anywhere in the fetch/extract path is
// mapped to ERROR_ACTION_FAILED.
func (c *Checker) readPrice(ctx context.Context, productURL string) (price *float64, status core.TrackingStatus) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Unexpected failure during price check",
				"url", productURL, "panic", r)
			price = nil
			status = core.StatusErrorActionFailed
		}
	}()

	markup, err := c.fetcher.FetchPage(ctx, productURL)
	if err != nil {
		return nil, core.StatusErrorFetching
	}

	p, err := scrape.ExtractPrice(markup, scrape.DetectRetailer(productURL))
	if err != nil {
		slog.WarnContext(ctx, "No price pattern matched", "url", productURL)
		return nil, core.StatusErrorFetchingParsing
	}

	return &p, core.StatusTrackingUpdated
}

func (c *Checker) publishAlert(ctx context.Context, item core.CartItem, price *float64) {
	if c.alerts == nil || price == nil || item.DesiredPrice == nil {
		return
	}

	msg := amqp.NewPriceAlertMessage(item.ID, item.Name, item.ProductURL, *price, *item.DesiredPrice)
	if err := c.alerts.PublishPriceAlert(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish price alert",
			"item_id", item.ID, "error", err)
	}
}

func priceValue(p *float64) any {
	if p == nil {
		return "absent"
	}
	return *p
}
