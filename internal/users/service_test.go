package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(repo Repo, now time.Time) *Service {
	svc := NewService(repo)
	svc.Now = func() time.Time { return now }
	return svc
}

func TestReconcileCreatesThenIsIdempotent(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	svc := newTestService(repo, now)
	p := Profile{SubjectID: "u1", Email: "a@example.com", FirstName: "Ada", LastName: "Lovelace"}

	user, outcome, err := svc.Reconcile(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.Equal(t, now.Truncate(time.Microsecond), user.CreatedAt)
	require.Equal(t, user.CreatedAt, user.UpdatedAt)

	svc.Now = func() time.Time { return now.Add(time.Hour) }
	again, outcome, err := svc.Reconcile(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, outcome)
	require.Equal(t, user, again)
	require.Equal(t, 1, repo.Count())
}

func TestReconcileUpdatesChangedFields(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	created, _, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "a@example.com", FirstName: "Ada"})
	require.NoError(t, err)

	later := now.Add(time.Minute)
	svc.Now = func() time.Time { return later }
	updated, outcome, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "b@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, outcome)
	require.Equal(t, "b@example.com", updated.Email)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Equal(t, later, updated.UpdatedAt)
}

func TestReconcileTreatsAbsentNamesAsEmpty(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo, time.Now())

	_, _, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "a@example.com", FirstName: "Ada", LastName: "L"})
	require.NoError(t, err)

	// Omitting names on a later sync clears them.
	user, outcome, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, outcome)
	require.Empty(t, user.FirstName)
	require.Empty(t, user.LastName)

	_, outcome, err = svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "a@example.com", FirstName: "  "})
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, outcome)
}

func TestReconcileRejectsMissingIdentity(t *testing.T) {
	svc := newTestService(NewMemoryRepo(), time.Now())
	for _, p := range []Profile{
		{Email: "a@example.com"},
		{SubjectID: "u1"},
		{SubjectID: "  ", Email: " "},
	} {
		_, _, err := svc.Reconcile(context.Background(), p)
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestReconcileConcurrentFirstSyncYieldsOneRow(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo, time.Now())
	p := Profile{SubjectID: "u1", Email: "a@example.com", FirstName: "Ada"}

	const workers = 16
	var wg sync.WaitGroup
	outcomes := make([]Outcome, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, outcomes[i], errs[i] = svc.Reconcile(context.Background(), p)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		if outcomes[i] == OutcomeCreated {
			created++
		}
	}
	require.Equal(t, 1, created)
	require.Equal(t, 1, repo.Count())
}

// racingRepo simulates another writer between the read and the write.
type racingRepo struct {
	*MemoryRepo
	createConflicts int
	updateMisses    int
}

func (r *racingRepo) Create(ctx context.Context, u User) error {
	if r.createConflicts > 0 {
		r.createConflicts--
		// The competing insert lands first.
		_ = r.MemoryRepo.Create(ctx, User{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt})
		return ErrConflict
	}
	return r.MemoryRepo.Create(ctx, u)
}

func (r *racingRepo) Update(ctx context.Context, u User) (User, error) {
	if r.updateMisses > 0 {
		r.updateMisses--
		_, _ = r.MemoryRepo.Delete(ctx, u.ID)
		return User{}, ErrNotFound
	}
	return r.MemoryRepo.Update(ctx, u)
}

func TestReconcileConflictConvergesOnExistingRow(t *testing.T) {
	repo := &racingRepo{MemoryRepo: NewMemoryRepo(), createConflicts: 1}
	svc := newTestService(repo, time.Now())

	user, outcome, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, outcome)
	require.Equal(t, "u1", user.ID)
}

func TestReconcileFallsBackToCreateWhenRowVanishes(t *testing.T) {
	repo := &racingRepo{MemoryRepo: NewMemoryRepo(), updateMisses: 1}
	now := time.Now()
	require.NoError(t, repo.MemoryRepo.Create(context.Background(), User{ID: "u1", Email: "old@example.com", CreatedAt: now, UpdatedAt: now}))
	svc := newTestService(repo, now)

	user, outcome, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "new@example.com"})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.Equal(t, "new@example.com", user.Email)
}

type failingRepo struct{ *MemoryRepo }

func (f *failingRepo) GetByID(context.Context, string) (User, error) {
	return User{}, errors.New("connection reset")
}

func TestReconcilePropagatesStoreErrors(t *testing.T) {
	svc := newTestService(&failingRepo{MemoryRepo: NewMemoryRepo()}, time.Now())
	_, _, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "a@example.com"})
	require.EqualError(t, err, "connection reset")
}

func TestWriteSurvivesCallerCancellation(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo, time.Now())
	require.NoError(t, repo.Create(context.Background(), User{ID: "u1", Email: "a@example.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deleted, err := svc.Delete(ctx, "u1")
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestMemoryRepoUpdateNeverMovesUpdatedAtBackwards(t *testing.T) {
	repo := NewMemoryRepo()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	later := created.Add(time.Minute)
	require.NoError(t, repo.Create(context.Background(), User{ID: "u1", Email: "a@example.com", CreatedAt: created, UpdatedAt: created}))

	_, err := repo.Update(context.Background(), User{ID: "u1", Email: "b@example.com", UpdatedAt: later})
	require.NoError(t, err)

	// A slower writer stamped before the previous commit still lands its fields.
	user, err := repo.Update(context.Background(), User{ID: "u1", Email: "c@example.com", UpdatedAt: created.Add(time.Second)})
	require.NoError(t, err)
	require.Equal(t, "c@example.com", user.Email)
	require.Equal(t, later, user.UpdatedAt)
}

func TestDeleteRemovesRow(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	_, _, err := svc.Reconcile(context.Background(), Profile{SubjectID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deleted, err := svc.Delete(ctx, "u1")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = svc.Delete(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = svc.Delete(context.Background(), " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}
