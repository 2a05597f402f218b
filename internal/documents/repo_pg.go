package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-builder/internal/shared/storage/db"
)

// PGRepo stores one collection in its own table. The table name comes from
// a Collection value, never from request input.
type PGRepo struct {
	DB    *sql.DB
	Table string
}

// NewPGRepo returns a repo bound to coll's table.
func NewPGRepo(database *sql.DB, coll Collection) *PGRepo {
	return &PGRepo{DB: database, Table: coll.Table}
}

const documentColumns = `id, user_id, title, data, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, user_id, title, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`, r.Table)
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		string(doc.Data),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return db.Classify(err)
}

func (r *PGRepo) GetByID(ctx context.Context, ownerID, id string) (Document, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1 AND user_id = $2`, documentColumns, r.Table)
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, db.Classify(err)
	}
	return doc, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE user_id = $1
ORDER BY updated_at DESC, created_at DESC, id`, documentColumns, r.Table)
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

func (r *PGRepo) Update(ctx context.Context, ownerID, id, title string, data json.RawMessage, updatedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`
UPDATE %s
SET title = $3, data = $4, updated_at = GREATEST(updated_at, $5)
WHERE id = $1 AND user_id = $2`, r.Table)
	res, err := r.DB.ExecContext(ctx, query, id, ownerID, title, string(data), updatedAt)
	if err != nil {
		return false, db.Classify(err)
	}
	return affected(res)
}

func (r *PGRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.Table)
	res, err := r.DB.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return false, db.Classify(err)
	}
	return affected(res)
}

func (r *PGRepo) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	return r.deleteByOwner(ctx, r.DB, ownerID)
}

// DeleteByOwnerTx removes the owner's documents inside an existing transaction.
func (r *PGRepo) DeleteByOwnerTx(ctx context.Context, tx *sql.Tx, ownerID string) (int64, error) {
	return r.deleteByOwner(ctx, tx, ownerID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PGRepo) deleteByOwner(ctx context.Context, ex execer, ownerID string) (int64, error) {
	res, err := ex.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, r.Table), ownerID)
	if err != nil {
		return 0, db.Classify(err)
	}
	return res.RowsAffected()
}

func (r *PGRepo) DeleteOrphaned(ctx context.Context, ownerID string, before time.Time) (int64, error) {
	query := fmt.Sprintf(`
DELETE FROM %s
WHERE user_id = $1
  AND updated_at < $2
  AND NOT EXISTS (SELECT 1 FROM users WHERE id = $1)`, r.Table)
	res, err := r.DB.ExecContext(ctx, query, ownerID, before)
	if err != nil {
		return 0, db.Classify(err)
	}
	return res.RowsAffected()
}

func (r *PGRepo) Owners(ctx context.Context) ([]OwnerCount, error) {
	query := fmt.Sprintf(`
SELECT user_id, COUNT(*), MAX(updated_at)
FROM %s
GROUP BY user_id
ORDER BY user_id`, r.Table)
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []OwnerCount
	for rows.Next() {
		var oc OwnerCount
		if err := rows.Scan(&oc.OwnerID, &oc.Documents, &oc.LastUpdated); err != nil {
			return nil, err
		}
		oc.LastUpdated = oc.LastUpdated.UTC()
		out = append(out, oc)
	}
	return out, db.Classify(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var data []byte
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&data,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.Data = json.RawMessage(data)
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return doc, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
