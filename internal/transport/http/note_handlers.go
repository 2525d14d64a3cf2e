package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	notemodels "leaselab/internal/note/models"
	"leaselab/pkg/requestcontext"
)

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req notemodels.CreateNoteRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.ApplicationID = chi.URLParam(r, "applicationID")
	if req.Author == "" {
		req.Author = requestcontext.Actor(r.Context())
	}
	note, err := s.notes.Create(r.Context(), siteFrom(r), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

// handleListNotes lists an application's notes, optionally filtered by
// category or re-ordered by priority. Notes carrying a role allowlist are
// filtered against the caller's X-Actor-Role.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := siteFrom(r)
	applicationID := chi.URLParam(r, "applicationID")

	var (
		notes []*notemodels.Note
		err   error
	)
	switch {
	case r.URL.Query().Get("category") != "":
		notes, err = s.notes.ListByCategory(ctx, siteID, applicationID, notemodels.Category(r.URL.Query().Get("category")))
	case r.URL.Query().Get("order") == "priority":
		notes, err = s.notes.ListByPriority(ctx, siteID, applicationID)
	default:
		notes, err = s.notes.List(ctx, siteID, applicationID)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	role := requestcontext.ActorRole(ctx)
	visible := notes[:0]
	for _, n := range notes {
		if n.VisibleTo(role) {
			visible = append(visible, n)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"notes": visible})
}

func (s *Server) handleNoteSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.notes.Summary(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.Get(r.Context(), siteFrom(r), chi.URLParam(r, "noteID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req notemodels.UpdateNoteRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	note, err := s.notes.Update(r.Context(), siteFrom(r), chi.URLParam(r, "noteID"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(r.Context(), siteFrom(r), chi.URLParam(r, "noteID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
