package core

import (
	"errors"
	"strings"
	"time"
)

// TrackingStatus is the price-tracking state of a cart item. The empty value
// means the item is not tracked (or its tracking fields are incomplete).
type TrackingStatus string

const (
	StatusNone                 TrackingStatus = ""
	StatusTracking             TrackingStatus = "TRACKING"
	StatusTrackingUpdated      TrackingStatus = "TRACKING_UPDATED"
	StatusBelowDesired         TrackingStatus = "BELOW_DESIRED"
	StatusErrorFetching        TrackingStatus = "ERROR_FETCHING"
	StatusErrorFetchingParsing TrackingStatus = "ERROR_FETCHING_OR_PARSING"
	StatusErrorActionFailed    TrackingStatus = "ERROR_ACTION_FAILED"
	StatusErrorCronProcessing  TrackingStatus = "ERROR_CRON_PROCESSING"
)

// Sweepable reports whether an item in this status is picked up by the
// periodic price sweep. ERROR_FETCHING stays in rotation; the other error
// statuses are excluded until the user edits the tracking fields.
func (s TrackingStatus) Sweepable() bool {
	switch s {
	case StatusNone, StatusTracking, StatusTrackingUpdated, StatusErrorFetching:
		return true
	}
	return false
}

// Valid reports whether s is one of the known tracking statuses.
func (s TrackingStatus) Valid() bool {
	switch s {
	case StatusNone, StatusTracking, StatusTrackingUpdated, StatusBelowDesired,
		StatusErrorFetching, StatusErrorFetchingParsing,
		StatusErrorActionFailed, StatusErrorCronProcessing:
		return true
	}
	return false
}

// TrackingState computes the status a cart item gets at create/edit time:
// tracking is active iff both a product URL and a desired price are present.
func TrackingState(productURL string, desiredPrice *float64) TrackingStatus {
	if strings.TrimSpace(productURL) != "" && desiredPrice != nil {
		return StatusTracking
	}
	return StatusNone
}

type (
	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		Name        string
		Amount      Money
		Category    string
		Date        time.Time
		IsPurchased bool
		CreatedAt   time.Time
	}

	// CartItem is a planned purchase, optionally tracked against a product
	// page. Tracked prices are decimals as scraped from retailer markup;
	// LastChecked is epoch milliseconds.
	CartItem struct {
		ID             int64
		Name           string
		EstimatedPrice *float64
		Quantity       int64
		Suggestion     string
		ProductURL     string
		DesiredPrice   *float64
		CurrentPrice   *float64
		Status         TrackingStatus
		LastChecked    *int64
		CreatedAt      time.Time
	}

	UserSettings struct {
		TotalBudget *Money
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidDate     = errors.New("invalid date")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (c CartItem) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if c.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if c.EstimatedPrice != nil && *c.EstimatedPrice <= 0 {
		return ErrInvalidAmount
	}
	if c.DesiredPrice != nil && *c.DesiredPrice <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
