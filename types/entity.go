package types

import "time"

// Entity is the base type for shelf entities with timestamps.
// Timestamps come from the journal record that last touched the entity.
// Replay reproduces them at the precision the store keeps: nanoseconds for
// the memory and SQLite stores, microseconds for Postgres and milliseconds
// for MongoDB.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped at t.
func NewEntity(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Touch sets the UpdatedAt timestamp to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}
