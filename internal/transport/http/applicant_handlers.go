package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	applicantmodels "leaselab/internal/applicant/models"
)

func (s *Server) handleCreateApplicant(w http.ResponseWriter, r *http.Request) {
	var req applicantmodels.CreateApplicantRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.ApplicationID = chi.URLParam(r, "applicationID")
	applicant, err := s.applicants.Create(r.Context(), siteFrom(r), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, applicant)
}

func (s *Server) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	applicants, err := s.applicants.List(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applicants": applicants})
}

func (s *Server) handleGetApplicant(w http.ResponseWriter, r *http.Request) {
	applicant, err := s.applicants.Get(r.Context(), siteFrom(r), chi.URLParam(r, "applicantID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, applicant)
}

func (s *Server) handleUpdateApplicant(w http.ResponseWriter, r *http.Request) {
	var req applicantmodels.UpdateApplicantRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	applicant, err := s.applicants.Update(r.Context(), siteFrom(r), chi.URLParam(r, "applicantID"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, applicant)
}

func (s *Server) handleDeleteApplicant(w http.ResponseWriter, r *http.Request) {
	if err := s.applicants.Delete(r.Context(), siteFrom(r), chi.URLParam(r, "applicantID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetInvite(w http.ResponseWriter, r *http.Request) {
	applicant, err := s.applicants.GetByInviteToken(r.Context(), siteFrom(r), chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, applicant)
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	applicant, err := s.applicants.AcceptInvite(r.Context(), siteFrom(r), chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, applicant)
}
