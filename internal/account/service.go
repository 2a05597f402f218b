package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-builder/internal/documents"
	"resume-builder/internal/identity"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/tracing"
	"resume-builder/internal/users"
)

const (
	defaultWriteTimeout = 10 * time.Second
	// defaultOrphanMinAge keeps a sweep away from owners who are still
	// writing documents but have not synced a user row yet.
	defaultOrphanMinAge = 24 * time.Hour
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	// ErrProvider means the identity provider refused or failed the delete.
	ErrProvider = errors.New("identity provider delete failed")
)

// Store pairs a collection with the repo holding it.
type Store struct {
	Collection documents.Collection
	Repo       documents.Repo
}

// Service removes principals and cleans up what they owned.
type Service struct {
	Directory *users.Service
	Stores    []Store
	Admin     identity.Admin
	// Policy is config.DeletePolicyRetain or config.DeletePolicyCascade.
	Policy        string
	AdminSubjects map[string]struct{}
	WriteTimeout  time.Duration
	// OrphanMinAge is how long an owner's documents must sit untouched
	// before a sweep may remove them.
	OrphanMinAge time.Duration
	Now          func() time.Time
}

func NewService(directory *users.Service, stores []Store, admin identity.Admin, policy string, adminSubjects []string) *Service {
	if admin == nil {
		admin = identity.NoopAdmin{}
	}
	subjects := make(map[string]struct{}, len(adminSubjects))
	for _, s := range adminSubjects {
		if s = strings.TrimSpace(s); s != "" {
			subjects[s] = struct{}{}
		}
	}
	return &Service{
		Directory:     directory,
		Stores:        stores,
		Admin:         admin,
		Policy:        policy,
		AdminSubjects: subjects,
		WriteTimeout:  defaultWriteTimeout,
		OrphanMinAge:  defaultOrphanMinAge,
		Now:           time.Now,
	}
}

// DeleteResult reports what a user delete removed locally.
type DeleteResult struct {
	UserRowDeleted   bool             `json:"userRowDeleted"`
	DocumentsDeleted map[string]int64 `json:"documentsDeleted,omitempty"`
}

// CanDelete reports whether callerID may delete targetID.
func (s *Service) CanDelete(callerID, targetID string) bool {
	if callerID == "" {
		return false
	}
	if callerID == targetID {
		return true
	}
	_, ok := s.AdminSubjects[callerID]
	return ok
}

// DeleteUser removes targetID at the identity provider and then locally.
// A provider failure leaves local state untouched.
func (s *Service) DeleteUser(ctx context.Context, callerID, targetID string) (res DeleteResult, err error) {
	callerID = strings.TrimSpace(callerID)
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return DeleteResult{}, ErrInvalidInput
	}
	if !s.CanDelete(callerID, targetID) {
		telemetry.Warn("account.delete_forbidden", map[string]any{
			"caller_id": callerID,
			"target_id": targetID,
		})
		return DeleteResult{}, ErrForbidden
	}

	ctx, span := tracing.Start(ctx, "account.delete_user", trace.WithAttributes(
		attribute.String("user.id", targetID),
		attribute.String("policy", s.Policy),
	))
	defer func() { tracing.End(span, err) }()

	if err := s.Admin.DeleteUser(ctx, targetID); err != nil {
		return DeleteResult{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	if s.Policy == config.DeletePolicyCascade {
		res, err = s.cascade(wctx, targetID)
	} else {
		res.UserRowDeleted, err = s.Directory.Delete(wctx, targetID)
	}
	if err != nil {
		return DeleteResult{}, err
	}
	telemetry.Info("account.user_deleted", map[string]any{
		"user_id":           targetID,
		"caller_id":         callerID,
		"policy":            s.Policy,
		"row_deleted":       res.UserRowDeleted,
		"documents_deleted": res.DocumentsDeleted,
	})
	return res, nil
}

func (s *Service) cascade(ctx context.Context, userID string) (DeleteResult, error) {
	if database, ok := s.sharedDB(); ok {
		return s.cascadeTx(ctx, database, userID)
	}

	res := DeleteResult{DocumentsDeleted: make(map[string]int64, len(s.Stores))}
	for _, st := range s.Stores {
		n, err := st.Repo.DeleteByOwner(ctx, userID)
		if err != nil {
			return DeleteResult{}, err
		}
		res.DocumentsDeleted[st.Collection.Name] = n
	}
	deleted, err := s.Directory.Delete(ctx, userID)
	if err != nil {
		return DeleteResult{}, err
	}
	res.UserRowDeleted = deleted
	return res, nil
}

// sharedDB returns the pool when every repo is Postgres-backed on the same pool.
func (s *Service) sharedDB() (*sql.DB, bool) {
	userPG, ok := s.Directory.Repo.(*users.PGRepo)
	if !ok || userPG == nil || userPG.DB == nil {
		return nil, false
	}
	for _, st := range s.Stores {
		docPG, ok := st.Repo.(*documents.PGRepo)
		if !ok || docPG == nil || docPG.DB != userPG.DB {
			return nil, false
		}
	}
	return userPG.DB, true
}

func (s *Service) cascadeTx(ctx context.Context, database *sql.DB, userID string) (DeleteResult, error) {
	res := DeleteResult{DocumentsDeleted: make(map[string]int64, len(s.Stores))}
	userPG := s.Directory.Repo.(*users.PGRepo)
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, st := range s.Stores {
			n, err := st.Repo.(*documents.PGRepo).DeleteByOwnerTx(ctx, tx, userID)
			if err != nil {
				return err
			}
			res.DocumentsDeleted[st.Collection.Name] = n
		}
		deleted, err := userPG.DeleteTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		res.UserRowDeleted = deleted
		return nil
	})
	if err != nil {
		return DeleteResult{}, db.Classify(err)
	}
	return res, nil
}

// Orphans counts documents per owner whose user row no longer exists.
type Orphans struct {
	Collection string `json:"collection"`
	OwnerID    string `json:"ownerId"`
	Documents  int64  `json:"documents"`
	Deleted    bool   `json:"deleted"`
}

// SweepOrphans finds documents whose owner has no user row and deletes them
// unless dryRun is set. Owners with a document touched within OrphanMinAge
// are skipped. Each delete re-checks the user row in the same statement, so
// an owner who syncs after the scan keeps their documents.
func (s *Service) SweepOrphans(ctx context.Context, dryRun bool) (found []Orphans, err error) {
	ctx, span := tracing.Start(ctx, "account.sweep_orphans", trace.WithAttributes(attribute.Bool("dry_run", dryRun)))
	defer func() { tracing.End(span, err) }()

	cutoff := s.orphanCutoff()
	known := make(map[string]bool)
	for _, st := range s.Stores {
		owners, err := st.Repo.Owners(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s owners: %w", st.Collection.Name, err)
		}
		for _, oc := range owners {
			if !oc.LastUpdated.Before(cutoff) {
				continue
			}
			exists, seen := known[oc.OwnerID]
			if !seen {
				exists, err = s.Directory.Repo.Exists(ctx, oc.OwnerID)
				if err != nil {
					return nil, fmt.Errorf("check owner %s: %w", oc.OwnerID, err)
				}
				known[oc.OwnerID] = exists
			}
			if exists {
				continue
			}

			orphan := Orphans{Collection: st.Collection.Name, OwnerID: oc.OwnerID, Documents: oc.Documents}
			if !dryRun {
				n, err := st.Repo.DeleteOrphaned(ctx, oc.OwnerID, cutoff)
				if err != nil {
					return found, fmt.Errorf("delete %s for %s: %w", st.Collection.Name, oc.OwnerID, err)
				}
				if n == 0 {
					continue
				}
				orphan.Documents = n
				orphan.Deleted = true
			}
			found = append(found, orphan)
		}
	}

	telemetry.Info("account.sweep_orphans", map[string]any{
		"dry_run": dryRun,
		"owners":  len(found),
		"cutoff":  cutoff,
	})
	return found, nil
}

func (s *Service) orphanCutoff() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	minAge := s.OrphanMinAge
	if minAge < 0 {
		minAge = 0
	}
	return now().UTC().Add(-minAge)
}

func (s *Service) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
