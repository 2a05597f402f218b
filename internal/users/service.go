package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/tracing"
)

const (
	defaultWriteTimeout = 10 * time.Second
	// maxSyncAttempts bounds create/update retries when the row keeps
	// appearing and disappearing under concurrent syncs and deletes.
	maxSyncAttempts = 3
)

type Service struct {
	Repo Repo
	// Now is the clock used for created/updated timestamps.
	Now func() time.Time
	// WriteTimeout bounds writes that outlive the caller's context.
	WriteTimeout time.Duration
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now, WriteTimeout: defaultWriteTimeout}
}

// Reconcile makes the directory row for p.SubjectID match p, writing only when needed.
func (s *Service) Reconcile(ctx context.Context, p Profile) (user User, outcome Outcome, err error) {
	if s == nil || s.Repo == nil {
		return User{}, "", errors.New("users service not configured")
	}
	p.SubjectID = strings.TrimSpace(p.SubjectID)
	p.Email = strings.TrimSpace(p.Email)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.SubjectID == "" || p.Email == "" {
		return User{}, "", ErrInvalidInput
	}

	ctx, span := tracing.Start(ctx, "users.reconcile", trace.WithAttributes(attribute.String("user.id", p.SubjectID)))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		tracing.End(span, err)
		if err == nil {
			metrics.IncUserSync(string(outcome))
		} else {
			metrics.IncUserSync(metrics.OutcomeError)
		}
	}()

	existing, err := s.Repo.GetByID(ctx, p.SubjectID)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.create(ctx, p, 1)
	case err != nil:
		return User{}, "", err
	}
	return s.update(ctx, existing, p, 1)
}

func (s *Service) create(ctx context.Context, p Profile, attempt int) (User, Outcome, error) {
	now := s.now()
	user := User{
		ID:        p.SubjectID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	wctx, cancel := s.writeContext(ctx)
	err := s.Repo.Create(wctx, user)
	cancel()
	if err == nil {
		telemetry.Info("users.created", map[string]any{"user_id": user.ID})
		return user, OutcomeCreated, nil
	}
	if !errors.Is(err, ErrConflict) || attempt >= maxSyncAttempts {
		return User{}, "", err
	}

	// A concurrent first sync won the insert; converge on its row.
	existing, err := s.Repo.GetByID(ctx, p.SubjectID)
	if err != nil {
		return User{}, "", err
	}
	return s.update(ctx, existing, p, attempt+1)
}

func (s *Service) update(ctx context.Context, existing User, p Profile, attempt int) (User, Outcome, error) {
	if existing.matches(p) {
		return existing, OutcomeUnchanged, nil
	}

	wctx, cancel := s.writeContext(ctx)
	updated, err := s.Repo.Update(wctx, User{
		ID:        p.SubjectID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		UpdatedAt: s.now(),
	})
	cancel()
	if errors.Is(err, ErrNotFound) && attempt < maxSyncAttempts {
		// Deleted between read and write.
		return s.create(ctx, p, attempt+1)
	}
	if err != nil {
		return User{}, "", err
	}
	telemetry.Info("users.updated", map[string]any{"user_id": updated.ID})
	return updated, OutcomeUpdated, nil
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID)
}

// Delete removes the local row; false when there was none.
func (s *Service) Delete(ctx context.Context, userID string) (bool, error) {
	if s == nil || s.Repo == nil {
		return false, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return false, ErrInvalidInput
	}
	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	return s.Repo.Delete(wctx, userID)
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

// writeContext detaches from client cancellation so an issued write is not abandoned.
func (s *Service) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
