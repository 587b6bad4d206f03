package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const dateLayout = "2006-01-02"

// GoogleClient writes transaction rows to a Google Sheets tab via a
// service account.
type GoogleClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ RowWriter = (*GoogleClient)(nil)
var _ IDLister = (*GoogleClient)(nil)

// NewGoogleClient creates a Sheets client for the given spreadsheet and
// tab. Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewGoogleClient(ctx context.Context, spreadsheetID, sheetName string) (*GoogleClient, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}

	credentialsJSON, err := loadCredentials()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &GoogleClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func loadCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	credentialsJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return credentialsJSON, nil
}

// Append writes one row after the current last row of the tab.
func (c *GoogleClient) Append(ctx context.Context, row Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		row.Date.Format(dateLayout),
		row.Kind,
		row.Label,
		row.Amount,
		row.Category,
		row.ID,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// ListIDs reads the id column of the tab and returns every non-empty
// value found there.
func (c *GoogleClient) ListIDs(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!F:F", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get id column for %s: %w", c.sheetName, err)
	}

	var ids []string
	for _, cells := range resp.Values {
		if len(cells) == 0 {
			continue
		}
		id, ok := cells[0].(string)
		if !ok || strings.TrimSpace(id) == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MemoryWriter collects rows in memory. Used in tests and when no
// spreadsheet is configured.
type MemoryWriter struct {
	mu   sync.Mutex
	rows []Row
}

var _ RowWriter = (*MemoryWriter)(nil)
var _ IDLister = (*MemoryWriter)(nil)

func (m *MemoryWriter) Append(_ context.Context, row Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return fmt.Sprintf("memory!A%d", len(m.rows)), nil
}

// ListIDs returns the record IDs of every row appended so far.
func (m *MemoryWriter) ListIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rows))
	for _, row := range m.rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// Rows returns a copy of everything appended so far.
func (m *MemoryWriter) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}
