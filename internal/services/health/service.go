package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service reports whether the API can reach its storage.
type Service struct {
	DB *sql.DB
}

// NewService constructs a health service. A nil pool means in-memory storage.
func NewService(database *sql.DB) *Service {
	return &Service{DB: database}
}

// Status is the /health payload.
type Status struct {
	OK      bool   `json:"ok"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}

// Check pings the pool, if any.
func (s *Service) Check(ctx context.Context) Status {
	if s == nil || s.DB == nil {
		return Status{OK: true, Storage: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return Status{OK: false, Storage: "postgres", Error: "database unreachable"}
	}
	return Status{OK: true, Storage: "postgres"}
}
