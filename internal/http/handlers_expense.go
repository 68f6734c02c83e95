package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"vfms/internal/core"
)

type expenseRequest struct {
	FundID    string     `json:"fundId"`
	CashierID string     `json:"cashierId"`
	Amount    core.Money `json:"amount"`
	Purpose   string     `json:"purpose"`
	IsPublic  bool       `json:"isPublic"`
	Date      *time.Time `json:"date"`
}

type statusRequest struct {
	Status core.ExpenseStatus `json:"status"`
}

type visibilityRequest struct {
	IsPublic *bool `json:"isPublic"`
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exp := core.Expense{
		FundID:    strings.TrimSpace(req.FundID),
		CashierID: strings.TrimSpace(req.CashierID),
		Amount:    req.Amount,
		Purpose:   sanitizeInput(req.Purpose),
		IsPublic:  req.IsPublic,
	}
	if req.Date != nil {
		exp.Date = req.Date.UTC()
	}

	saved, err := s.svc.Expenses.Record(r.Context(), exp)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleExpenseStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.svc.Expenses.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleExpenseVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsPublic == nil {
		writeError(w, http.StatusBadRequest, "isPublic is required")
		return
	}
	saved, err := s.svc.Expenses.SetVisibility(r.Context(), chi.URLParam(r, "id"), *req.IsPublic)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleFundExpenses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	list, err := s.svc.Expenses.List(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
