// Package transport exposes the intake core over HTTP. Routing is chi, the
// tenant is resolved from the X-Site-ID header and domain error codes map
// onto HTTP statuses in respond.go.
package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	aievalservice "leaselab/internal/aieval/service"
	applicantservice "leaselab/internal/applicant/service"
	documentservice "leaselab/internal/document/service"
	historyservice "leaselab/internal/history/service"
	leadservice "leaselab/internal/lead/service"
	noteservice "leaselab/internal/note/service"
	transitionservice "leaselab/internal/transition/service"
)

// Server bundles the domain services behind HTTP handlers.
type Server struct {
	leads       *leadservice.Service
	applicants  *applicantservice.Service
	documents   *documentservice.Service
	notes       *noteservice.Service
	transitions *transitionservice.Service
	evaluations *aievalservice.Service
	history     *historyservice.Service
	logger      *slog.Logger
}

// New constructs the transport layer.
func New(
	leads *leadservice.Service,
	applicants *applicantservice.Service,
	documents *documentservice.Service,
	notes *noteservice.Service,
	transitions *transitionservice.Service,
	evaluations *aievalservice.Service,
	history *historyservice.Service,
	logger *slog.Logger,
) *Server {
	return &Server{
		leads:       leads,
		applicants:  applicants,
		documents:   documents,
		notes:       notes,
		transitions: transitions,
		evaluations: evaluations,
		history:     history,
		logger:      logger,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestScope)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireSite)

		r.Route("/applications", func(r chi.Router) {
			r.Post("/", s.handleCreateLead)
			r.Get("/", s.handleListLeads)
			r.Get("/by-unit", s.handleListLeadsByUnit)

			r.Route("/{applicationID}", func(r chi.Router) {
				r.Get("/", s.handleGetLead)
				r.Patch("/", s.handleUpdateLead)
				r.Delete("/", s.handleDeleteLead)
				r.Post("/archive", s.handleArchiveLead)
				r.Post("/restore", s.handleRestoreLead)
				r.Get("/history", s.handleListHistory)

				r.Post("/applicants", s.handleCreateApplicant)
				r.Get("/applicants", s.handleListApplicants)

				r.Post("/documents", s.handleCreateDocument)
				r.Get("/documents", s.handleListDocuments)
				r.Get("/documents/stats", s.handleDocumentStats)
				r.Get("/documents/stats/by-applicant", s.handleDocumentStatsByApplicant)

				r.Post("/notes", s.handleCreateNote)
				r.Get("/notes", s.handleListNotes)
				r.Get("/notes/summary", s.handleNoteSummary)

				r.Post("/transitions", s.handleTransition)
				r.Get("/transitions", s.handleListTransitions)
				r.Get("/transitions/latest", s.handleLatestTransition)
				r.Get("/transitions/stats", s.handleTransitionStats)

				r.Post("/evaluation", s.handleEvaluate)
				r.Get("/evaluation", s.handleCachedEvaluation)
			})
		})

		r.Route("/applicants/{applicantID}", func(r chi.Router) {
			r.Get("/", s.handleGetApplicant)
			r.Patch("/", s.handleUpdateApplicant)
			r.Delete("/", s.handleDeleteApplicant)
		})
		r.Get("/invites/{token}", s.handleGetInvite)
		r.Post("/invites/{token}/accept", s.handleAcceptInvite)

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Patch("/", s.handleUpdateDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Post("/verify", s.handleVerifyDocument)
			r.Post("/reject", s.handleRejectDocument)
			r.Post("/expire", s.handleExpireDocument)
		})

		r.Route("/notes/{noteID}", func(r chi.Router) {
			r.Get("/", s.handleGetNote)
			r.Patch("/", s.handleUpdateNote)
			r.Delete("/", s.handleDeleteNote)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
