package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	leadmodels "leaselab/internal/lead/models"
)

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req leadmodels.CreateLeadRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	lead, err := s.leads.Create(r.Context(), siteFrom(r), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Get(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var req leadmodels.UpdateLeadRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	lead, err := s.leads.Update(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handleArchiveLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Archive(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handleRestoreLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Restore(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.leads.Delete(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.leads.List(r.Context(), siteFrom(r), listFilterFrom(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applications": leads})
}

func (s *Server) handleListLeadsByUnit(w http.ResponseWriter, r *http.Request) {
	grouped, err := s.leads.ListGroupedByUnit(r.Context(), siteFrom(r), listFilterFrom(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"units": grouped})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.history.ListForApplication(r.Context(), siteFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func listFilterFrom(r *http.Request) leadmodels.ListFilter {
	q := r.URL.Query()
	filter := leadmodels.ListFilter{
		Status:          leadmodels.Stage(q.Get("status")),
		PropertyID:      q.Get("property_id"),
		IncludeArchived: q.Get("include_archived") == "true",
		SortBy:          leadmodels.SortField(q.Get("sort_by")),
		SortDesc:        q.Get("sort_desc") == "true",
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}
	return filter
}
