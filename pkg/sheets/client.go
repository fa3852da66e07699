package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jkhalligan/gala-ticket-platform/pkg/config"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

const (
	metadataCheckTimeout = 10 * time.Second
	callTimeout          = 30 * time.Second
)

var (
	errSpreadsheetIDRequired = errors.New("sheets spreadsheet id is required")
	errRangeRequired         = errors.New("sheets range is required")
	errClientNotInitialized  = errors.New("sheets client not initialized")
)

// Client wraps the Google Sheets API for roster exports.
type Client struct {
	service       *sheetsv4.Service
	spreadsheetID string
	cfg           config.SheetsConfig
}

// Writer is the surface the export service depends on.
type Writer interface {
	ReplaceRows(ctx context.Context, readRange string, rows [][]interface{}) error
	FetchRows(ctx context.Context, readRange string) ([][]interface{}, error)
}

// NewClient creates a Sheets client and verifies the configured spreadsheet exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.SheetsConfig, logg *logger.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errSpreadsheetIDRequired
	}

	service, err := sheetsv4.NewService(ctx, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	client := &Client{
		service:       service,
		spreadsheetID: spreadsheetID,
		cfg:           cfg,
	}

	if err := client.ensureSpreadsheet(ctx); err != nil {
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "sheets client initialized")
	}

	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

func (c *Client) ensureSpreadsheet(ctx context.Context) error {
	if c == nil || c.service == nil {
		return errClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	_, err := c.service.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("checking spreadsheet %q: %w", c.spreadsheetID, err)
	}
	return nil
}

// ReplaceRows clears the target range and writes the given rows in its place.
func (c *Client) ReplaceRows(ctx context.Context, readRange string, rows [][]interface{}) error {
	if c == nil || c.service == nil {
		return errClientNotInitialized
	}
	readRange = strings.TrimSpace(readRange)
	if readRange == "" {
		return errRangeRequired
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if _, err := c.service.Spreadsheets.Values.
		Clear(c.spreadsheetID, readRange, &sheetsv4.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing range %q: %w", readRange, err)
	}

	body := &sheetsv4.ValueRange{Values: rows}
	if _, err := c.service.Spreadsheets.Values.
		Update(c.spreadsheetID, readRange, body).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("writing range %q: %w", readRange, err)
	}
	return nil
}

// FetchRows reads the target range. Used to pick up operator edits that are
// allowed to flow back into the system.
func (c *Client) FetchRows(ctx context.Context, readRange string) ([][]interface{}, error) {
	if c == nil || c.service == nil {
		return nil, errClientNotInitialized
	}
	readRange = strings.TrimSpace(readRange)
	if readRange == "" {
		return nil, errRangeRequired
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.service.Spreadsheets.Values.
		Get(c.spreadsheetID, readRange).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading range %q: %w", readRange, err)
	}
	return resp.Values, nil
}
