package core

import "time"

// Mutation actions carried by MutationEvent.
const (
	MutationCreated = "transaction.created"
	MutationDeleted = "transaction.deleted"
)

// MutationEvent tells other surfaces that the server-side data changed and
// their views are out of date.
type MutationEvent struct {
	Action    string    `json:"action"`
	ID        string    `json:"id,omitempty"` // normalized, deletes only
	Kind      Kind      `json:"type,omitempty"`
	Amount    *Amount   `json:"amount,omitempty"`
	Category  string    `json:"category,omitempty"`
	Date      string    `json:"date,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
