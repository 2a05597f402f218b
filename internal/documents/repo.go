package documents

import (
	"context"
	"encoding/json"
	"time"
)

// Repo persists the documents of a single collection. Every read and write
// is scoped by owner so a foreign id behaves exactly like a missing one.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, ownerID, id string) (Document, error)
	// ListByOwner returns the owner's documents, most recently updated first.
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
	Update(ctx context.Context, ownerID, id, title string, data json.RawMessage, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	// DeleteOrphaned removes the owner's documents last updated before the
	// cutoff, in one step that also checks the owner has no user row.
	DeleteOrphaned(ctx context.Context, ownerID string, before time.Time) (int64, error)
	// Owners reports every owner id that holds at least one document.
	Owners(ctx context.Context) ([]OwnerCount, error)
}
