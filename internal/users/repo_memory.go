package users

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return ErrConflict
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, user User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	existing.Email = user.Email
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	if user.UpdatedAt.After(existing.UpdatedAt) {
		existing.UpdatedAt = user.UpdatedAt
	}
	r.users[user.ID] = existing
	return existing, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return false, nil
	}
	delete(r.users, userID)
	return true, nil
}

func (r *MemoryRepo) Exists(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok, nil
}

// Count returns the number of stored users.
func (r *MemoryRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
