// Package models defines the stage transition log record and the rule set
// the engine validates against.
package models

import (
	"time"

	leadmodels "leaselab/internal/lead/models"
)

// Type says who drove a stage change.
type Type string

const (
	TypeManual    Type = "manual"
	TypeAutomatic Type = "automatic"
	TypeSystem    Type = "system"
)

// Valid reports whether t is a known transition type.
func (t Type) Valid() bool {
	return t == TypeManual || t == TypeAutomatic || t == TypeSystem
}

// BypassCategory justifies skipping an incomplete checklist.
type BypassCategory string

const (
	BypassAIOffline      BypassCategory = "ai_offline"
	BypassManualOverride BypassCategory = "manual_override"
	BypassEmergency      BypassCategory = "emergency"
	BypassOther          BypassCategory = "other"
)

// Valid reports whether c is a known bypass category.
func (c BypassCategory) Valid() bool {
	switch c {
	case BypassAIOffline, BypassManualOverride, BypassEmergency, BypassOther:
		return true
	}
	return false
}

// StageTransition is one immutable entry in an application's stage log. Rows
// are appended and never updated or deleted.
type StageTransition struct {
	ID                string           `json:"id"`
	SiteID            string           `json:"site_id"`
	ApplicationID     string           `json:"application_id"`
	FromStage         leadmodels.Stage `json:"from_stage"`
	ToStage           leadmodels.Stage `json:"to_stage"`
	TransitionType    Type             `json:"transition_type"`
	BypassReason      string           `json:"bypass_reason,omitempty"`
	BypassCategory    BypassCategory   `json:"bypass_category,omitempty"`
	ChecklistSnapshot map[string]bool  `json:"checklist_snapshot"`
	InternalNote      string           `json:"internal_note,omitempty"`
	TransitionedBy    string           `json:"transitioned_by"`
	TransitionedAt    time.Time        `json:"transitioned_at"`
}

// Bypassed reports whether the transition went through on a bypass.
func (t *StageTransition) Bypassed() bool {
	return t.BypassReason != ""
}

// TransitionRequest asks the engine to move an application to a new stage.
type TransitionRequest struct {
	To             leadmodels.Stage `json:"to_stage"`
	Type           Type             `json:"transition_type"`
	BypassReason   string           `json:"bypass_reason,omitempty"`
	BypassCategory BypassCategory   `json:"bypass_category,omitempty"`
	Checklist      map[string]bool  `json:"checklist,omitempty"`
	InternalNote   string           `json:"internal_note,omitempty"`
	Actor          string           `json:"actor"`
}

// Edge is a from/to stage pair, the key checklists hang off.
type Edge struct {
	From leadmodels.Stage
	To   leadmodels.Stage
}

// Rules configures the engine: which stages may follow which, and what must
// be checked off on each edge. The engine treats this as data so sites can
// run customized pipelines.
type Rules struct {
	Successors map[leadmodels.Stage][]leadmodels.Stage
	Checklist  map[Edge][]string
}

// Allows reports whether to is a configured successor of from.
func (r Rules) Allows(from, to leadmodels.Stage) bool {
	for _, s := range r.Successors[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequiredItems returns the checklist for the from→to edge, nil when the
// edge has none.
func (r Rules) RequiredItems(from, to leadmodels.Stage) []string {
	return r.Checklist[Edge{From: from, To: to}]
}

// DefaultStageRules is the standard intake-to-lease pipeline. rejected may
// move back to screening so a declined application can be revived; the
// revival is recorded like any other transition.
func DefaultStageRules() Rules {
	return Rules{
		Successors: map[leadmodels.Stage][]leadmodels.Stage{
			leadmodels.StageNew:               {leadmodels.StageContacted, leadmodels.StageTourScheduled, leadmodels.StageDocumentsPending, leadmodels.StageDocumentsReceived},
			leadmodels.StageContacted:         {leadmodels.StageTourScheduled, leadmodels.StageDocumentsPending, leadmodels.StageRejected},
			leadmodels.StageTourScheduled:     {leadmodels.StageContacted, leadmodels.StageDocumentsPending, leadmodels.StageRejected},
			leadmodels.StageDocumentsPending:  {leadmodels.StageDocumentsReceived, leadmodels.StageRejected},
			leadmodels.StageDocumentsReceived: {leadmodels.StageAIEvaluated, leadmodels.StageDocumentsPending, leadmodels.StageRejected},
			leadmodels.StageAIEvaluated:       {leadmodels.StageScreening, leadmodels.StageDocumentsPending, leadmodels.StageRejected},
			leadmodels.StageScreening:         {leadmodels.StageApproved, leadmodels.StageRejected},
			leadmodels.StageApproved:          {leadmodels.StageLeaseSent, leadmodels.StageRejected},
			leadmodels.StageRejected:          {leadmodels.StageScreening},
			leadmodels.StageLeaseSent:         {leadmodels.StageLeaseSigned, leadmodels.StageApproved},
		},
		Checklist: map[Edge][]string{
			{From: leadmodels.StageDocumentsReceived, To: leadmodels.StageAIEvaluated}: {"all_documents_verified"},
			{From: leadmodels.StageAIEvaluated, To: leadmodels.StageScreening}:         {"ai_evaluation_reviewed"},
			{From: leadmodels.StageScreening, To: leadmodels.StageApproved}:            {"background_check_clear", "income_verified"},
			{From: leadmodels.StageApproved, To: leadmodels.StageLeaseSent}:            {"lease_terms_confirmed"},
		},
	}
}

// Stats aggregates an application's (or site's) transition history.
type Stats struct {
	Total     int `json:"total_transitions"`
	Manual    int `json:"manual_transitions"`
	Automatic int `json:"automatic_transitions"`
	System    int `json:"system_transitions"`
	Bypassed  int `json:"bypassed_transitions"`
}

// Tally folds one transition into the stats.
func (s *Stats) Tally(t *StageTransition) {
	s.Total++
	switch t.TransitionType {
	case TypeManual:
		s.Manual++
	case TypeAutomatic:
		s.Automatic++
	case TypeSystem:
		s.System++
	}
	if t.Bypassed() {
		s.Bypassed++
	}
}
