package amqp

import (
	"testing"
	"time"
)

func TestPriceAlertMessageRoundTrip(t *testing.T) {
	msg := NewPriceAlertMessage(42, "Headphones", "https://www.amazon.in/dp/B0", 1234.56, 2000)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := PriceAlertMessageFromJSON(body)
	if err != nil {
		t.Fatalf("PriceAlertMessageFromJSON: %v", err)
	}

	if got.ItemID != 42 || got.Name != "Headphones" {
		t.Errorf("unexpected identity fields: %+v", got)
	}
	if got.CurrentPrice != 1234.56 || got.DesiredPrice != 2000 {
		t.Errorf("unexpected prices: %+v", got)
	}
	if got.ProductURL != "https://www.amazon.in/dp/B0" {
		t.Errorf("unexpected url: %q", got.ProductURL)
	}
	if got.Timestamp.IsZero() || time.Since(got.Timestamp) > time.Minute {
		t.Errorf("unexpected timestamp: %v", got.Timestamp)
	}
}

func TestPriceAlertMessageFromJSON_Invalid(t *testing.T) {
	if _, err := PriceAlertMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
