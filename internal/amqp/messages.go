package amqp

import (
	"encoding/json"
	"time"
)

// PriceAlertMessage is published when a tracked cart item's observed price
// reaches or drops below the desired price. Consumers (the alert worker)
// record it; the tracker does not wait for them.
type PriceAlertMessage struct {
	ItemID       int64     `json:"item_id"`
	Name         string    `json:"name"`
	ProductURL   string    `json:"product_url"`
	CurrentPrice float64   `json:"current_price"`
	DesiredPrice float64   `json:"desired_price"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewPriceAlertMessage(itemID int64, name, productURL string, currentPrice, desiredPrice float64) *PriceAlertMessage {
	return &PriceAlertMessage{
		ItemID:       itemID,
		Name:         name,
		ProductURL:   productURL,
		CurrentPrice: currentPrice,
		DesiredPrice: desiredPrice,
		Timestamp:    time.Now(),
	}
}

func (m *PriceAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PriceAlertMessageFromJSON(data []byte) (*PriceAlertMessage, error) {
	var msg PriceAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
