package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGlobalSummary(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.summaryCache.Get(summaryCacheKey); ok {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, cached)
		return
	}
	summary, err := s.svc.Compliance.GlobalSummary(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	s.summaryCache.Set(summaryCacheKey, summary)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFundReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Compliance.FundReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFundBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.svc.Compliance.FundBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}
