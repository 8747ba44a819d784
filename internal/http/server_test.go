package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jichul/internal/services"
	"jichul/internal/storage"
)

const testPassword = "s3cret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	jsonb := storage.NewJSONBackend(filepath.Join(t.TempDir(), storage.JSONFileName))
	store := storage.NewStore(
		[]storage.Loader{jsonb, storage.NewDefaultLoader("")},
		[]storage.Writer{jsonb},
		nil,
	)
	ledger := services.NewLedger(store, services.WithClock(func() time.Time {
		return time.Date(2025, 4, 15, 9, 0, 0, 0, time.Local)
	}))
	srv := NewServer(":0", ledger, Options{
		Password:           testPassword,
		SessionTTL:         time.Hour,
		SessionMax:         10,
		LoginRatePerMinute: 3,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/login", "", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	token, _ := decode(t, rr)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/expenses", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "인증이 필요합니다.", decode(t, rr)["error"])

	rr = do(t, srv, http.MethodPost, "/api/login", "", map[string]string{"password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "비밀번호가 올바르지 않습니다.", decode(t, rr)["error"])

	token := login(t, srv)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/expenses", token, nil).Code)

	rr = do(t, srv, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/api/expenses", token, nil).Code)
}

func TestAuth_Cookie(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/login", "", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/payees", nil)
	req.AddCookie(cookies[0])
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		do(t, srv, http.MethodPost, "/api/login", "", map[string]string{"password": "wrong"})
	}
	rr := do(t, srv, http.MethodPost, "/api/login", "", map[string]string{"password": testPassword})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestExpenseEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/expenses", token, map[string]any{
		"merchant":       " 농구 ",
		"amount":         "282,000원",
		"approval_date":  "25/4/15",
		"payment_method": "계좌이체",
		"payment_cycle":  "3M",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	created := decode(t, rr)["expense"].(map[string]any)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "농구", created["merchant"])
	assert.Equal(t, float64(282000), created["amount"])
	assert.Equal(t, "2025-04-15", created["approval_date"])

	rr = do(t, srv, http.MethodPut, "/api/expenses/1", token, map[string]any{
		"merchant":       "농구",
		"amount":         300000,
		"approval_date":  "2025-04-15",
		"payment_method": "카드",
		"payment_cycle":  "3M",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "카드", decode(t, rr)["expense"].(map[string]any)["payment_method"])

	rr = do(t, srv, http.MethodGet, "/api/expenses", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["expenses"], 1)

	rr = do(t, srv, http.MethodGet, "/api/expenses/by-date?date=2025-04-15", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["expenses"], 1)

	rr = do(t, srv, http.MethodGet, "/api/expenses/search?q=농", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	hits := decode(t, rr)["expenses"].([]any)
	require.Len(t, hits, 1)
	assert.NotContains(t, hits[0].(map[string]any), "id")

	rr = do(t, srv, http.MethodGet, "/api/expenses/calendar?year=2025&month=4", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	days := decode(t, rr)["daily_data"].(map[string]any)
	assert.Contains(t, days, "2025-04-15")

	rr = do(t, srv, http.MethodGet, "/api/statistics", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode(t, rr)
	assert.Equal(t, float64(300000), stats["total_amount"])
	merchants := stats["merchant_totals"].([]any)
	require.Len(t, merchants, 1)
	assert.Equal(t, "농구", merchants[0].(map[string]any)["merchant"])

	rr = do(t, srv, http.MethodDelete, "/api/expenses/1", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["ok"])

	// Deleting again is not an error.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/expenses/1", token, nil).Code)
}

func TestExpenseEndpoints_Errors(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{"missing fields", http.MethodPost, "/api/expenses", map[string]any{"merchant": "x"}, http.StatusBadRequest, "필수 항목이 누락되었습니다."},
		{"update unknown", http.MethodPut, "/api/expenses/99", map[string]any{
			"merchant": "x", "approval_date": "2025-01-01", "payment_method": "카드", "payment_cycle": "1M",
		}, http.StatusNotFound, "지출을 찾을 수 없습니다."},
		{"update unknown payee", http.MethodPut, "/api/payees/99", map[string]any{
			"name": "x", "owner_name": "y", "payment_cycle": "1M",
		}, http.StatusNotFound, "거래처를 찾을 수 없습니다."},
		{"by-date without date", http.MethodGet, "/api/expenses/by-date", nil, http.StatusBadRequest, "date 파라미터가 필요합니다."},
		{"calendar without month", http.MethodGet, "/api/expenses/calendar?year=2025", nil, http.StatusBadRequest, "year와 month 파라미터가 필요합니다."},
		{"calendar bad month", http.MethodGet, "/api/expenses/calendar?year=2025&month=13", nil, http.StatusBadRequest, "year와 month 파라미터가 필요합니다."},
		{"import without multipart", http.MethodPost, "/api/import/csv", nil, http.StatusBadRequest, "file 필드가 필요합니다."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, token, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.msg, decode(t, rr)["error"])
		})
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)
	rr := do(t, srv, http.MethodGet, "/api/expenses/search?q=", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"expenses": []}`, rr.Body.String())
}

func TestPayeeEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/payees", token, map[string]any{
		"name":           "세차",
		"bank_name":      "국민은행",
		"account_number": "40880101094704",
		"owner_name":     "김란향",
		"payment_cycle":  "1M",
		"amount":         "60,000",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/payees", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	payees := decode(t, rr)["payees"].([]any)
	require.Len(t, payees, 1)
	assert.Equal(t, float64(60000), payees[0].(map[string]any)["amount"])

	rr = do(t, srv, http.MethodPut, "/api/payees/1", token, map[string]any{
		"name": "세차", "owner_name": "김란향", "payment_cycle": "3M",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/payees/1", token, nil).Code)
	rr = do(t, srv, http.MethodGet, "/api/payees", token, nil)
	assert.JSONEq(t, `{"payees": []}`, rr.Body.String())
}

func TestImportCSV(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "expenses.csv")
		require.NoError(t, err)
		_, err = io.WriteString(fw, "\ufeff학원,금액,승인 날짜,거래처,결제 주기\r\n"+
			"농구,\"282,000\",25/04/15,계좌이체,3M\r\n"+
			"간식,1000,언젠가,카드,수시\r\n")
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/import/csv", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr
	}

	rr := upload()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, float64(1), body["inserted"])
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0].(string), "3행"), errs[0])

	rr = upload()
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(0), decode(t, rr)["inserted"])
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
