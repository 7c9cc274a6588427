// Package types provides common types shared across the Eco-Seed ledger.
package types

import "time"

// Entity carries creation and update timestamps for mutable records.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity with current timestamps.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch sets UpdatedAt to t in UTC.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}
