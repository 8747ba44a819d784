package http

import (
	"net/http"
	"strings"

	"jichul/internal/core"
	"jichul/internal/services"
)

type expensesResponse[T any] struct {
	Expenses []T `json:"expenses"`
}

type expenseResponse struct {
	Expense services.ExpenseView `json:"expense"`
}

type calendarResponse struct {
	DailyData map[string]core.DaySummary `json:"daily_data"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.ledger.ListExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expensesResponse[services.ExpenseView]{Expenses: nonNil(expenses)})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return
	}
	view, err := s.ledger.CreateExpense(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseResponse{Expense: view})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgExpenseNotFound, "")
		return
	}
	var in services.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return
	}
	view, err := s.ledger.UpdateExpense(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseResponse{Expense: view})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgExpenseNotFound, "")
		return
	}
	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleExpensesByDate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, msgDateRequired, "")
		return
	}
	expenses, err := s.ledger.ExpensesByDate(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expensesResponse[services.ExpenseView]{Expenses: nonNil(expenses)})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, okYear := queryInt(r, "year")
	month, okMonth := queryInt(r, "month")
	if !okYear || !okMonth || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, msgYearMonthMissing, "")
		return
	}
	days, err := s.ledger.Calendar(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if days == nil {
		days = map[string]core.DaySummary{}
	}
	writeJSON(w, http.StatusOK, calendarResponse{DailyData: days})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.ledger.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expensesResponse[services.ExpenseSearchView]{Expenses: nonNil(results)})
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
