package model

import "github.com/google/uuid"

// NewID returns a time-ordered identifier for new rows.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = NewID()
	}
}
