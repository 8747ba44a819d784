package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"jichul/internal/amqp"
	"jichul/internal/core"
	"jichul/internal/log"
)

// User-facing messages.
const (
	msgMissingFields    = "필수 항목이 누락되었습니다."
	msgExpenseNotFound  = "지출을 찾을 수 없습니다."
	msgPayeeNotFound    = "거래처를 찾을 수 없습니다."
	msgUnauthenticated  = "인증이 필요합니다."
	msgWrongPassword    = "비밀번호가 올바르지 않습니다."
	msgTooManyAttempts  = "로그인 시도가 너무 많습니다. 잠시 후 다시 시도하세요."
	msgDateRequired     = "date 파라미터가 필요합니다."
	msgYearMonthMissing = "year와 month 파라미터가 필요합니다."
	msgFileRequired     = "file 필드가 필요합니다."
	msgFileNotSelected  = "파일이 선택되지 않았습니다."
	msgUploadFailed     = "CSV 업로드 중 오류가 발생했습니다: "
	msgInvalidBody      = "요청 형식이 올바르지 않습니다."
	msgInternal         = "서버 오류가 발생했습니다."
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// writeServiceError maps ledger errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	var nf *core.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, msgMissingFields, ve.Field)
	case errors.As(err, &nf):
		msg := msgExpenseNotFound
		if nf.Kind == amqp.EntityPayee {
			msg = msgPayeeNotFound
		}
		writeError(w, http.StatusNotFound, msg, "")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithError(err).ToSlice()...)
		writeError(w, http.StatusInternalServerError, msgInternal, "")
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func queryInt(r *http.Request, key string) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
