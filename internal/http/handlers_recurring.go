package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// expandRequest names the last month to generate as a 0-based index.
type expandRequest struct {
	Year         int  `json:"year"`
	ThroughMonth *int `json:"throughMonth"`
}

type yearlyRequest struct {
	Year int `json:"year"`
}

func (s *Server) handleExpandTemplate(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ThroughMonth == nil {
		writeError(w, http.StatusBadRequest, "throughMonth is required")
		return
	}

	res, err := s.svc.Recurring.ExpandMonthlyTemplate(r.Context(), chi.URLParam(r, "id"), req.Year, *req.ThroughMonth)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if res.CreatedCount > 0 {
		s.invalidateSummary()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGenerateYearly(w http.ResponseWriter, r *http.Request) {
	var req yearlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Recurring.GenerateYearlyDues(r.Context(), chi.URLParam(r, "id"), req.Year)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if res.CreatedCount > 0 {
		s.invalidateSummary()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRepairLinks(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Recurring.RepairLinks(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if res.Repaired > 0 {
		s.invalidateSummary()
	}
	writeJSON(w, http.StatusOK, res)
}
