// Package sheets defines the port for the price alert log.
package sheets

import (
	"context"

	"cartwatch/internal/amqp"
)

// AlertAppender appends one alert to the durable alert log.
type AlertAppender interface {
	AppendAlert(ctx context.Context, alert *amqp.PriceAlertMessage) error
}
