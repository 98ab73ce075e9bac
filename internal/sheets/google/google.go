// Package google appends price alerts to a Google Sheets spreadsheet, giving
// the alert stream a durable, human-readable log.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cartwatch/internal/amqp"
	ports "cartwatch/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	alertSheet    string
}

var _ ports.AlertAppender = (*Client)(nil)

// NewClient creates a Sheets client for the given spreadsheet. Credentials
// come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewClient(ctx context.Context, spreadsheetID, alertSheet string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(alertSheet) == "" {
		alertSheet = "Alerts"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		alertSheet:    alertSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendAlert writes one alert row to the end of the alert sheet.
func (c *Client) AppendAlert(ctx context.Context, alert *amqp.PriceAlertMessage) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if alert == nil {
		return errors.New("nil alert")
	}

	rng := fmt.Sprintf("%s!A:F", c.alertSheet)
	vr := &gsheet.ValueRange{Values: [][]any{alertRow(alert)}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append alert to sheet %s: %w", c.alertSheet, err)
	}

	slog.InfoContext(ctx, "Alert appended to sheet",
		"item_id", alert.ItemID, "sheet", c.alertSheet)
	return nil
}

// alertRow flattens an alert into spreadsheet columns:
// timestamp, item id, name, current price, desired price, product URL.
func alertRow(alert *amqp.PriceAlertMessage) []any {
	return []any{
		alert.Timestamp.Format(time.RFC3339),
		alert.ItemID,
		alert.Name,
		alert.CurrentPrice,
		alert.DesiredPrice,
		alert.ProductURL,
	}
}
