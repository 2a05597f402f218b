package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]Document // id -> document

	// OwnerExists reports whether an owner still has a user row. DeleteOrphaned
	// consults it under the write lock; nil means no owner exists.
	OwnerExists func(ctx context.Context, ownerID string) (bool, error)
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.Data = cloneRaw(doc.Data)
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	doc.Data = cloneRaw(doc.Data)
	return doc, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			doc.Data = cloneRaw(doc.Data)
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, ownerID, id, title string, data json.RawMessage, updatedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return false, nil
	}
	doc.Title = title
	doc.Data = cloneRaw(data)
	// updated_at never moves backwards, even when a slower writer commits last.
	if updatedAt.After(doc.UpdatedAt) {
		doc.UpdatedAt = updatedAt
	}
	r.docs[id] = doc
	return true, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return false, nil
	}
	delete(r.docs, id)
	return true, nil
}

func (r *MemoryRepo) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, doc := range r.docs {
		if doc.OwnerID == ownerID {
			delete(r.docs, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) DeleteOrphaned(ctx context.Context, ownerID string, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.OwnerExists != nil {
		exists, err := r.OwnerExists(ctx, ownerID)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, nil
		}
	}
	var n int64
	for id, doc := range r.docs {
		if doc.OwnerID == ownerID && doc.UpdatedAt.Before(before) {
			delete(r.docs, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Owners(ctx context.Context) ([]OwnerCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	counts := make(map[string]OwnerCount)
	for _, doc := range r.docs {
		oc := counts[doc.OwnerID]
		oc.OwnerID = doc.OwnerID
		oc.Documents++
		if doc.UpdatedAt.After(oc.LastUpdated) {
			oc.LastUpdated = doc.UpdatedAt
		}
		counts[doc.OwnerID] = oc
	}
	r.mu.RUnlock()

	out := make([]OwnerCount, 0, len(counts))
	for _, oc := range counts {
		out = append(out, oc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	return out, nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return json.RawMessage(bytes.Clone(raw))
}
