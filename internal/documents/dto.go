package documents

import (
	"encoding/json"
	"time"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// documentRequest is the body accepted by create and update.
type documentRequest struct {
	Title *string         `json:"title"`
	Data  json.RawMessage `json:"data"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Title:     doc.Title,
		Data:      doc.Data,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func toResponses(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	return out
}
