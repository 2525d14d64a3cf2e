// Package service implements the stage transition engine. It validates a
// requested stage change against the configured successor rules and per-edge
// checklists, records an immutable transition row and keeps the lead's
// denormalized status in step with the log.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	leadmodels "leaselab/internal/lead/models"
	"leaselab/internal/platform/metrics"
	"leaselab/internal/transition/models"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
	"leaselab/pkg/tx"
)

// TransitionStore is the persistence boundary for the transition log.
type TransitionStore interface {
	Append(ctx context.Context, t *models.StageTransition) error
	Latest(ctx context.Context, siteID, applicationID string) (*models.StageTransition, error)
	ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.StageTransition, error)
	ListByStagePair(ctx context.Context, siteID, applicationID string, from, to leadmodels.Stage) ([]*models.StageTransition, error)
	ListBypassed(ctx context.Context, siteID, applicationID string) ([]*models.StageTransition, error)
}

// LeadStore is the slice of the lead store the engine needs: reading the
// current application and writing its denormalized status.
type LeadStore interface {
	FindByID(ctx context.Context, siteID, id string) (*leadmodels.Lead, error)
	UpdateStatus(ctx context.Context, siteID, id string, stage leadmodels.Stage, now time.Time) error
}

// HistoryRecorder appends to the per-application audit feed.
type HistoryRecorder interface {
	Record(ctx context.Context, siteID, applicationID, eventType string, eventData map[string]any) error
}

// Service is the stage transition engine.
type Service struct {
	transitions TransitionStore
	leads       LeadStore
	history     HistoryRecorder
	rules       models.Rules
	runner      tx.Runner
	ids         idgen.Generator
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRunner(r tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

// WithRules overrides the default pipeline rules.
func WithRules(rules models.Rules) Option {
	return func(s *Service) { s.rules = rules }
}

// New constructs the transition engine with the default stage rules.
func New(transitions TransitionStore, leads LeadStore, history HistoryRecorder, ids idgen.Generator, opts ...Option) *Service {
	s := &Service{
		transitions: transitions,
		leads:       leads,
		history:     history,
		rules:       models.DefaultStageRules(),
		ids:         ids,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = tx.NewMemoryRunner()
	}
	return s
}

// Transition moves an application to a new stage. The current stage is read
// from the most recent transition row, falling back to the lead's stored
// status for applications that predate the log. The transition row and the
// status update are written inside one transactional envelope so the
// "status equals latest transition's to_stage" invariant cannot be broken by
// a partial write.
func (s *Service) Transition(ctx context.Context, siteID, applicationID string, req models.TransitionRequest) (*models.StageTransition, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lead, err := s.leads.FindByID(ctx, siteID, applicationID)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}

	current, err := s.currentStage(ctx, siteID, applicationID, lead)
	if err != nil {
		return nil, err
	}

	if !s.rules.Allows(current, req.To) {
		return nil, apperrors.Newf(apperrors.CodeValidation,
			"illegal transition to %q: current stage is %q, allowed successors are %s",
			req.To, current, stageList(s.rules.Successors[current]))
	}

	missing := s.missingChecklistItems(current, req.To, req.Checklist)
	bypassed := len(missing) > 0
	if bypassed {
		if req.BypassReason == "" || req.BypassCategory == "" {
			return nil, apperrors.Newf(apperrors.CodeConflict,
				"checklist incomplete for %s -> %s (missing: %s); supply bypass_reason and bypass_category to override",
				current, req.To, strings.Join(missing, ", "))
		}
	}

	t := &models.StageTransition{
		ID:                s.ids.NewID(),
		SiteID:            siteID,
		ApplicationID:     applicationID,
		FromStage:         current,
		ToStage:           req.To,
		TransitionType:    req.Type,
		ChecklistSnapshot: snapshotChecklist(req.Checklist),
		InternalNote:      req.InternalNote,
		TransitionedBy:    req.Actor,
		TransitionedAt:    requestcontext.Now(ctx),
	}
	if bypassed {
		t.BypassReason = req.BypassReason
		t.BypassCategory = req.BypassCategory
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.transitions.Append(txCtx, t); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorage, "failed to append transition")
		}
		if err := s.leads.UpdateStatus(txCtx, siteID, applicationID, req.To, t.TransitionedAt); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorage, "failed to update application status")
		}
		eventData := map[string]any{
			"from_stage":      string(t.FromStage),
			"to_stage":        string(t.ToStage),
			"transition_type": string(t.TransitionType),
			"transitioned_by": t.TransitionedBy,
		}
		if t.Bypassed() {
			eventData["bypass_reason"] = t.BypassReason
			eventData["bypass_category"] = string(t.BypassCategory)
		}
		if err := s.history.Record(txCtx, siteID, applicationID, "stage_changed", eventData); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorage, "failed to record history event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(t.TransitionType)).Inc()
		if t.Bypassed() {
			s.metrics.TransitionBypasses.Inc()
		}
	}
	s.log(ctx, "stage transition recorded",
		"site_id", siteID, "application_id", applicationID,
		"from_stage", string(t.FromStage), "to_stage", string(t.ToStage),
		"bypassed", t.Bypassed())
	return t, nil
}

// Latest returns the application's most recent transition.
func (s *Service) Latest(ctx context.Context, siteID, applicationID string) (*models.StageTransition, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	t, err := s.transitions.Latest(ctx, siteID, applicationID)
	if err != nil {
		return nil, translateNotFound(err, "no transitions recorded for application")
	}
	return t, nil
}

// List returns the application's transition log, newest first.
func (s *Service) List(ctx context.Context, siteID, applicationID string) ([]*models.StageTransition, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	transitions, err := s.transitions.ListForApplication(ctx, siteID, applicationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list transitions")
	}
	return transitions, nil
}

// ListByStagePair returns transitions matching an exact from/to pair.
func (s *Service) ListByStagePair(ctx context.Context, siteID, applicationID string, from, to leadmodels.Stage) ([]*models.StageTransition, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if !from.Valid() || !to.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown stage pair %q -> %q", from, to)
	}
	transitions, err := s.transitions.ListByStagePair(ctx, siteID, applicationID, from, to)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list transitions")
	}
	return transitions, nil
}

// ListBypassed returns transitions that recorded a checklist bypass.
func (s *Service) ListBypassed(ctx context.Context, siteID, applicationID string) ([]*models.StageTransition, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	transitions, err := s.transitions.ListBypassed(ctx, siteID, applicationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list transitions")
	}
	return transitions, nil
}

// Stats aggregates the application's transition history by type and bypass
// usage.
func (s *Service) Stats(ctx context.Context, siteID, applicationID string) (*models.Stats, error) {
	transitions, err := s.List(ctx, siteID, applicationID)
	if err != nil {
		return nil, err
	}
	stats := &models.Stats{}
	for _, t := range transitions {
		stats.Tally(t)
	}
	return stats, nil
}

// currentStage resolves where the application is now. The transition log is
// authoritative; the lead's stored status covers applications created before
// their first transition.
func (s *Service) currentStage(ctx context.Context, siteID, applicationID string, lead *leadmodels.Lead) (leadmodels.Stage, error) {
	latest, err := s.transitions.Latest(ctx, siteID, applicationID)
	if err == nil {
		return latest.ToStage, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return "", apperrors.Wrap(err, apperrors.CodeStorage, "failed to read latest transition")
	}
	if lead.Status != "" {
		return lead.Status, nil
	}
	return leadmodels.StageNew, nil
}

func (s *Service) missingChecklistItems(from, to leadmodels.Stage, checklist map[string]bool) []string {
	var missing []string
	for _, item := range s.rules.RequiredItems(from, to) {
		if !checklist[item] {
			missing = append(missing, item)
		}
	}
	return missing
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		args = append(args, "request_id", reqID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func validateRequest(req models.TransitionRequest) error {
	if !req.To.Valid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown target stage %q", req.To)
	}
	if !req.Type.Valid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown transition_type %q", req.Type)
	}
	if req.Actor == "" {
		return apperrors.New(apperrors.CodeValidation, "actor is required")
	}
	if req.BypassCategory != "" && !req.BypassCategory.Valid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown bypass_category %q", req.BypassCategory)
	}
	if (req.BypassReason == "") != (req.BypassCategory == "") {
		return apperrors.New(apperrors.CodeValidation,
			"bypass_reason and bypass_category must be supplied together")
	}
	return nil
}

func snapshotChecklist(checklist map[string]bool) map[string]bool {
	snapshot := make(map[string]bool, len(checklist))
	for item, done := range checklist {
		snapshot[item] = done
	}
	return snapshot
}

func stageList(stages []leadmodels.Stage) string {
	if len(stages) == 0 {
		return "none"
	}
	names := make([]string, len(stages))
	for i, stage := range stages {
		names[i] = fmt.Sprintf("%q", stage)
	}
	return strings.Join(names, ", ")
}

func requireSite(siteID string) error {
	if siteID == "" {
		return apperrors.New(apperrors.CodeInternal, "site context not resolved")
	}
	return nil
}

func translateNotFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return apperrors.New(apperrors.CodeNotFound, msg)
	}
	return apperrors.Wrap(err, apperrors.CodeStorage, "storage failure")
}
