package core

import (
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func TestTrackingStatusSweepable(t *testing.T) {
	tests := []struct {
		status TrackingStatus
		want   bool
	}{
		{StatusNone, true},
		{StatusTracking, true},
		{StatusTrackingUpdated, true},
		{StatusErrorFetching, true},
		{StatusBelowDesired, false},
		{StatusErrorFetchingParsing, false},
		{StatusErrorActionFailed, false},
		{StatusErrorCronProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Sweepable(); got != tt.want {
				t.Errorf("Sweepable(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTrackingState(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		desired *float64
		want    TrackingStatus
	}{
		{name: "url and desired price", url: "https://www.amazon.in/dp/X", desired: fp(999), want: StatusTracking},
		{name: "url only", url: "https://www.amazon.in/dp/X", desired: nil, want: StatusNone},
		{name: "desired price only", url: "", desired: fp(999), want: StatusNone},
		{name: "blank url", url: "   ", desired: fp(999), want: StatusNone},
		{name: "neither", url: "", desired: nil, want: StatusNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrackingState(tt.url, tt.desired); got != tt.want {
				t.Errorf("TrackingState() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Name:     "Groceries",
		Amount:   Money{Cents: 4550},
		Category: "Food",
		Date:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(e *Expense)
	}{
		{name: "empty name", mutate: func(e *Expense) { e.Name = "  " }},
		{name: "zero amount", mutate: func(e *Expense) { e.Amount = Money{} }},
		{name: "negative amount", mutate: func(e *Expense) { e.Amount = Money{Cents: -1} }},
		{name: "empty category", mutate: func(e *Expense) { e.Category = "" }},
		{name: "zero date", mutate: func(e *Expense) { e.Date = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestCartItemValidate(t *testing.T) {
	valid := CartItem{Name: "Headphones", Quantity: 1, DesiredPrice: fp(1500)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid cart item rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *CartItem)
	}{
		{name: "empty name", mutate: func(c *CartItem) { c.Name = "" }},
		{name: "zero quantity", mutate: func(c *CartItem) { c.Quantity = 0 }},
		{name: "negative desired price", mutate: func(c *CartItem) { c.DesiredPrice = fp(-5) }},
		{name: "zero estimated price", mutate: func(c *CartItem) { c.EstimatedPrice = fp(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
