package http

import (
	"net/http"

	"jichul/internal/services"
)

type payeesResponse struct {
	Payees []services.PayeeView `json:"payees"`
}

func (s *Server) handleListPayees(w http.ResponseWriter, r *http.Request) {
	payees, err := s.ledger.ListPayees(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payeesResponse{Payees: nonNil(payees)})
}

func (s *Server) handleCreatePayee(w http.ResponseWriter, r *http.Request) {
	var in services.PayeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return
	}
	if _, err := s.ledger.CreatePayee(r.Context(), in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleUpdatePayee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgPayeeNotFound, "")
		return
	}
	var in services.PayeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return
	}
	if _, err := s.ledger.UpdatePayee(r.Context(), id, in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleDeletePayee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgPayeeNotFound, "")
		return
	}
	if err := s.ledger.DeletePayee(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}
