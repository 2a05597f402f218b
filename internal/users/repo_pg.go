package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"resume-builder/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, email, first_name, last_name, created_at, updated_at`

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, db.Classify(err)
	}
	return user, nil
}

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, first_name, last_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		nullableString(user.FirstName),
		nullableString(user.LastName),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return db.Classify(err)
	}
	return nil
}

func (r *PGRepo) Update(ctx context.Context, user User) (User, error) {
	const query = `
UPDATE users
SET email = $2, first_name = $3, last_name = $4, updated_at = GREATEST(updated_at, $5)
WHERE id = $1
RETURNING ` + userColumns
	updated, err := scanUser(r.DB.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		nullableString(user.FirstName),
		nullableString(user.LastName),
		user.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, db.Classify(err)
	}
	return updated, nil
}

func (r *PGRepo) Delete(ctx context.Context, userID string) (bool, error) {
	return r.deleteWith(ctx, r.DB, userID)
}

// DeleteTx removes the user inside an existing transaction.
func (r *PGRepo) DeleteTx(ctx context.Context, tx *sql.Tx, userID string) (bool, error) {
	return r.deleteWith(ctx, tx, userID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PGRepo) deleteWith(ctx context.Context, ex execer, userID string) (bool, error) {
	res, err := ex.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, db.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *PGRepo) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, db.Classify(err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var firstName, lastName sql.NullString
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&firstName,
		&lastName,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// nullableString stores absent names as NULL.
func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
