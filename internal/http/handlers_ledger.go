package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vfms/internal/core"
	applog "vfms/internal/log"
	"vfms/internal/services"
)

type duesResponse struct {
	HouseholdID  string           `json:"householdId"`
	TotalPending core.Money       `json:"totalPending"`
	Dues         []core.DueStatus `json:"dues"`
}

// paymentRequest leaves FundIDs nil when "fundIds" is absent, which pays
// dues automatically; an explicit list, even an empty one, is a selection.
type paymentRequest struct {
	Amount  core.Money `json:"amount"`
	Method  string     `json:"method"`
	UPIID   string     `json:"upiId"`
	FundIDs []string   `json:"fundIds"`
}

func (s *Server) handleListHouseholds(w http.ResponseWriter, r *http.Request) {
	hs, err := s.svc.Ledger.Households(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) handleListFunds(w http.ResponseWriter, r *http.Request) {
	fs, err := s.svc.Ledger.Funds(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (s *Server) handleHouseholdDues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dues, err := s.svc.Ledger.Status(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var pending core.Money
	for _, d := range dues {
		pending = pending.Add(d.PendingAmount)
	}
	writeJSON(w, http.StatusOK, duesResponse{HouseholdID: id, TotalPending: pending, Dues: dues})
}

func (s *Server) handleHouseholdPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Ledger.Household(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	ps, err := s.svc.Ledger.Payments(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	alloc, err := s.svc.Ledger.Allocate(r.Context(), services.AllocationRequest{
		HouseholdID:    id,
		Amount:         req.Amount,
		Method:         core.PaymentMethod(req.Method),
		UPIID:          req.UPIID,
		AllowedFundIDs: req.FundIDs,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	s.invalidateSummary()

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Payment allocated",
		applog.FieldHouseholdID, id,
		applog.FieldAmountCents, alloc.OriginalAmount.Cents,
		"payments", len(alloc.Payments),
		"fully_cleared", alloc.FullyCleared)
	writeJSON(w, http.StatusCreated, alloc)
}
