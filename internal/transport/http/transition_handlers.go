package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	leadmodels "leaselab/internal/lead/models"
	transitionmodels "leaselab/internal/transition/models"
	"leaselab/pkg/requestcontext"
)

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionmodels.TransitionRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Actor == "" {
		req.Actor = requestcontext.Actor(r.Context())
	}
	if req.Type == "" {
		req.Type = transitionmodels.TypeManual
	}
	t, err := s.transitions.Transition(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// handleListTransitions lists the application's transition log, optionally
// narrowed to an exact from/to pair or to bypassed transitions only.
func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := siteFrom(r)
	applicationID := chi.URLParam(r, "applicationID")
	q := r.URL.Query()

	var (
		transitions []*transitionmodels.StageTransition
		err         error
	)
	switch {
	case q.Get("from") != "" || q.Get("to") != "":
		transitions, err = s.transitions.ListByStagePair(ctx, siteID, applicationID,
			leadmodels.Stage(q.Get("from")), leadmodels.Stage(q.Get("to")))
	case q.Get("bypassed") == "true":
		transitions, err = s.transitions.ListBypassed(ctx, siteID, applicationID)
	default:
		transitions, err = s.transitions.List(ctx, siteID, applicationID)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}

func (s *Server) handleLatestTransition(w http.ResponseWriter, r *http.Request) {
	t, err := s.transitions.Latest(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleTransitionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.transitions.Stats(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
