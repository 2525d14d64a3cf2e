package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	documentmodels "leaselab/internal/document/models"
)

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentmodels.CreateDocumentRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.ApplicationID = chi.URLParam(r, "applicationID")
	document, err := s.documents.Create(r.Context(), siteFrom(r), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, document)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := s.documents.List(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": documents})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	document, err := s.documents.Get(r.Context(), siteFrom(r), chi.URLParam(r, "documentID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, document)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentmodels.UpdateDocumentRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	document, err := s.documents.Update(r.Context(), siteFrom(r), chi.URLParam(r, "documentID"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, document)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), siteFrom(r), chi.URLParam(r, "documentID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewRequest struct {
	Reason     string `json:"reason,omitempty"`
	VerifiedBy string `json:"verified_by"`
}

func (s *Server) handleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	document, err := s.documents.Verify(r.Context(), siteFrom(r), chi.URLParam(r, "documentID"), req.VerifiedBy)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, document)
}

func (s *Server) handleRejectDocument(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	document, err := s.documents.Reject(r.Context(), siteFrom(r), chi.URLParam(r, "documentID"), req.Reason, req.VerifiedBy)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, document)
}

func (s *Server) handleExpireDocument(w http.ResponseWriter, r *http.Request) {
	document, err := s.documents.MarkExpired(r.Context(), siteFrom(r), chi.URLParam(r, "documentID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, document)
}

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.documents.StatsForApplication(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDocumentStatsByApplicant(w http.ResponseWriter, r *http.Request) {
	stats, err := s.documents.StatsByApplicant(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applicants": stats})
}
