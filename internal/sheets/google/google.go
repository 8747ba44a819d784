package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"jichul/internal/core"
	"jichul/internal/log"
	ports "jichul/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	ExpensesTab     string
	PayeesTab       string

	// Extra client options, e.g. an endpoint override in tests.
	Options []goption.ClientOption
}

// Client mirrors snapshots into a Google spreadsheet, one tab for expenses
// and one for payees.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesTab   string
	payeesTab     string
	logger        *log.Logger
}

var (
	_ ports.SnapshotMirror = (*Client)(nil)
	_ ports.RowReader      = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	logger = log.OrDiscard(logger).WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		expensesTab:   orDefault(cfg.ExpensesTab, ports.ExpensesTab),
		payeesTab:     orDefault(cfg.PayeesTab, ports.PayeesTab),
		logger:        logger,
	}, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// newSheetsService builds the API service. Explicit options in cfg take
// precedence; otherwise service account JSON is read inline or from a file.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	opts := append([]goption.ClientOption(nil), cfg.Options...)
	if len(opts) == 0 {
		credentialsJSON, err := loadCredentials(cfg)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Creating Google Sheets service with service account",
			"credentials_size", len(credentialsJSON),
			"scope", gsheet.SpreadsheetsScope)
		opts = append(opts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// MirrorSnapshot clears both tabs and writes the snapshot in two batch calls.
func (c *Client) MirrorSnapshot(ctx context.Context, s *core.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if s == nil {
		return errors.New("nil snapshot")
	}

	_, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{
		Ranges: []string{c.expensesTab, c.payeesTab},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear tabs: %w", err)
	}

	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*gsheet.ValueRange{
			{Range: c.expensesTab + "!A1", Values: toValues(ports.ExpenseRows(s.Expenses))},
			{Range: c.payeesTab + "!A1", Values: toValues(ports.PayeeRows(s.Payees))},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write tabs: %w", err)
	}

	log.OrDiscard(c.logger).InfoContext(ctx, "Snapshot mirrored to spreadsheet",
		log.NewFields().
			WithOperation(log.OpSync).
			WithSnapshotSize(len(s.Expenses), len(s.Payees)).
			ToSlice()...)
	return nil
}

// ReadRows returns the formatted values of tab.
func (c *Client) ReadRows(ctx context.Context, tab string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, toStrings(row))
	}
	return out, nil
}

func toValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		vals := make([]any, len(r))
		for j, v := range r {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
