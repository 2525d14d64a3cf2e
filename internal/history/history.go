// Package history is the generic append-only audit feed recorded for every
// application mutation. It is coarser than the stage-transition log and does
// not replace it: transitions carry state-machine fields this feed does not.
package history

import "time"

// EntityType distinguishes the feeds sharing the history table.
type EntityType string

const (
	EntityLead EntityType = "lead"
	EntityUnit EntityType = "unit"
)

// Event is one append-only audit record. Never updated in place.
type Event struct {
	ID            string         `json:"id"`
	SiteID        string         `json:"site_id"`
	EntityType    EntityType     `json:"entity_type"`
	ApplicationID string         `json:"application_id"`
	EventType     string         `json:"event_type"`
	EventData     map[string]any `json:"event_data"`
	CreatedAt     time.Time      `json:"created_at"`
}
