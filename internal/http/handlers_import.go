package http

import (
	"errors"
	"io"
	"net/http"
)

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, msgFileRequired, "")
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, msgFileNotSelected, "")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgUploadFailed+err.Error(), "")
		return
	}
	result, err := s.ledger.ImportBatch(r.Context(), raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgUploadFailed+err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
