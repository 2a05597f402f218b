package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/tracing"
)

const defaultWriteTimeout = 10 * time.Second

// Service applies validation and ownership rules on top of a collection's Repo.
type Service struct {
	Collection Collection
	Repo       Repo
	// Now is the clock used for created/updated timestamps.
	Now func() time.Time
	// NewID mints document ids.
	NewID func() string
	// WriteTimeout bounds writes that outlive the caller's context.
	WriteTimeout time.Duration
}

// NewService constructs a Service for coll backed by repo.
func NewService(coll Collection, repo Repo) *Service {
	return &Service{
		Collection:   coll,
		Repo:         repo,
		Now:          time.Now,
		NewID:        uuid.NewString,
		WriteTimeout: defaultWriteTimeout,
	}
}

// Create validates and stores a new document owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, title *string, data json.RawMessage) (doc Document, err error) {
	ctx, span := s.start(ctx, opCreate, ownerID)
	defer func() { s.finish(span, opCreate, err) }()

	t, d, err := validate(title, data)
	if err != nil {
		return Document{}, err
	}
	now := s.now()
	doc = Document{
		ID:        s.NewID(),
		OwnerID:   ownerID,
		Title:     t,
		Data:      d,
		CreatedAt: now,
		UpdatedAt: now,
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	if err := s.Repo.Create(wctx, doc); err != nil {
		return Document{}, err
	}
	telemetry.Info("document.created", map[string]any{
		"collection":  s.Collection.Name,
		"document_id": doc.ID,
		"user_id":     ownerID,
	})
	return doc, nil
}

// Get returns the document only when ownerID owns it.
func (s *Service) Get(ctx context.Context, ownerID, id string) (doc Document, err error) {
	ctx, span := s.start(ctx, opGet, ownerID)
	defer func() { s.finish(span, opGet, err) }()

	if !validID(id) {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, ownerID, id)
}

// List returns the owner's documents, most recently updated first. Never nil.
func (s *Service) List(ctx context.Context, ownerID string) (docs []Document, err error) {
	ctx, span := s.start(ctx, opList, ownerID)
	defer func() { s.finish(span, opList, err) }()

	docs, err = s.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	span.SetAttributes(attribute.Int("documents.count", len(docs)))
	return docs, nil
}

// Update overwrites title and data of an owned document. Last write wins.
func (s *Service) Update(ctx context.Context, ownerID, id string, title *string, data json.RawMessage) (err error) {
	ctx, span := s.start(ctx, opUpdate, ownerID)
	defer func() { s.finish(span, opUpdate, err) }()

	t, d, err := validate(title, data)
	if err != nil {
		return err
	}
	if !validID(id) {
		return ErrNotFound
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	ok, err := s.Repo.Update(wctx, ownerID, id, t, d, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes an owned document.
func (s *Service) Delete(ctx context.Context, ownerID, id string) (err error) {
	ctx, span := s.start(ctx, opDelete, ownerID)
	defer func() { s.finish(span, opDelete, err) }()

	if !validID(id) {
		return ErrNotFound
	}
	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	ok, err := s.Repo.Delete(wctx, ownerID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	telemetry.Info("document.deleted", map[string]any{
		"collection":  s.Collection.Name,
		"document_id": id,
		"user_id":     ownerID,
	})
	return nil
}

func (s *Service) start(ctx context.Context, op, ownerID string) (context.Context, trace.Span) {
	return tracing.Start(ctx, "documents."+op, trace.WithAttributes(
		attribute.String("collection", s.Collection.Name),
		attribute.String("user.id", ownerID),
	))
}

func (s *Service) finish(span trace.Span, op string, err error) {
	metrics.ObserveDocumentOp(s.Collection.Name, op, outcomeOf(err))
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		// Client errors are not span failures.
		tracing.End(span, nil)
		return
	}
	tracing.End(span, err)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrInvalidInput):
		return metrics.OutcomeInvalid
	case errors.Is(err, db.ErrUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

func (s *Service) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// validate enforces that both title and data are present and truthy.
func validate(title *string, data json.RawMessage) (string, json.RawMessage, error) {
	if title == nil || *title == "" {
		return "", nil, ErrInvalidInput
	}
	data = bytes.TrimSpace(data)
	if isFalsy(data) {
		return "", nil, ErrInvalidInput
	}
	if !json.Valid(data) {
		return "", nil, ErrInvalidInput
	}
	return *title, data, nil
}

// isFalsy reports whether raw is absent or one of null, false, 0 or "".
// Empty objects and arrays are accepted.
func isFalsy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	switch raw[0] {
	case 'n':
		return string(raw) == "null"
	case 'f':
		return string(raw) == "false"
	case '"':
		var s string
		return json.Unmarshal(raw, &s) == nil && s == ""
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		return json.Unmarshal(raw, &f) == nil && f == 0
	}
	return false
}

func validID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
