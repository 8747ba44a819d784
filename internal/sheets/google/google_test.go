package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"jichul/internal/core"
)

// fakeSheets records the batch calls made against one spreadsheet.
type fakeSheets struct {
	mu      sync.Mutex
	cleared []string
	written []*gsheet.ValueRange
	input   string
}

func (f *fakeSheets) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/values:batchClear"):
			var req gsheet.BatchClearValuesRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.cleared = append(f.cleared, req.Ranges...)
			json.NewEncoder(w).Encode(gsheet.BatchClearValuesResponse{SpreadsheetId: "sheet-1"})
		case strings.HasSuffix(r.URL.Path, "/values:batchUpdate"):
			var req gsheet.BatchUpdateValuesRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.written = append(f.written, req.Data...)
			f.input = req.ValueInputOption
			json.NewEncoder(w).Encode(gsheet.BatchUpdateValuesResponse{SpreadsheetId: "sheet-1"})
		case strings.Contains(r.URL.Path, "/values/"):
			json.NewEncoder(w).Encode(gsheet.ValueRange{
				Values: [][]any{{"ID", "학원"}, {1, " 농구 "}},
			})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		SpreadsheetID: "sheet-1",
		Options: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
		},
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/creds.json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestClient_MirrorSnapshot(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)

	snap := core.NewSnapshot()
	snap.AddExpense(core.Expense{Merchant: "농구", Amount: core.NewMoney(282000), ApprovalDate: "2025-04-15", PaymentMethod: "계좌이체", PaymentCycle: core.CycleQuarterly})
	snap.AddPayee(core.Payee{Name: "세차", OwnerName: "김란향", PaymentCycle: core.CycleMonthly, Amount: core.NewMoney(60000)})

	require.NoError(t, c.MirrorSnapshot(context.Background(), snap))

	assert.Equal(t, []string{"Expenses", "Payees"}, f.cleared)
	assert.Equal(t, "USER_ENTERED", f.input)
	require.Len(t, f.written, 2)
	assert.Equal(t, "Expenses!A1", f.written[0].Range)
	require.Len(t, f.written[0].Values, 2)
	assert.Equal(t, []any{"1", "농구", "282000", "2025-04-15", "계좌이체", "3M"}, f.written[0].Values[1])
	assert.Equal(t, "Payees!A1", f.written[1].Range)
	assert.Equal(t, "60000", f.written[1].Values[1][6])
}

func TestClient_ReadRows(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	rows, err := c.ReadRows(context.Background(), "Expenses")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ID", "학원"}, {"1", "농구"}}, rows)
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	assert.Error(t, c.MirrorSnapshot(context.Background(), core.NewSnapshot()))
	_, err := c.ReadRows(context.Background(), "Expenses")
	assert.Error(t, err)
}
