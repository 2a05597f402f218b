package documents

import (
	"encoding/json"
	"time"
)

// Document is an owner-scoped record with an opaque JSON payload.
type Document struct {
	ID        string
	OwnerID   string
	Title     string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerCount is the number of documents held by one owner.
type OwnerCount struct {
	OwnerID   string
	Documents int64
	// LastUpdated is the newest updated_at among the owner's documents.
	LastUpdated time.Time
}
