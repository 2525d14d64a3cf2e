package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	aievalmodels "leaselab/internal/aieval/models"
)

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var opts aievalmodels.EvaluateOptions
	if r.ContentLength != 0 {
		if err := decodeBody(r, &opts); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	result, err := s.evaluations.Evaluate(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCachedEvaluation(w http.ResponseWriter, r *http.Request) {
	result, err := s.evaluations.Cached(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
