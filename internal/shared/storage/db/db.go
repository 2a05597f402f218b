package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/kelseyhightower/envconfig"

	"resume-builder/internal/shared/telemetry"
)

// ErrUnavailable is returned when the store cannot be reached or timed out.
var ErrUnavailable = errors.New("storage unavailable")

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// envOptions mirrors Options for DB_* overrides; zero values mean unset.
type envOptions struct {
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME"`
	PingTimeout     time.Duration `envconfig:"PING_TIMEOUT"`
}

var (
	openDB         = sql.Open
	singletonMu    sync.Mutex
	singletonCond  = sync.NewCond(&singletonMu)
	singletonDB    *sql.DB
	singletonInFly bool
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions returns conservative defaults for Lambda concurrency.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
	}
}

// DefaultServerOptions returns defaults for the long-running API process.
// Ten open connections matches the pool size the service has always run with.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultAdminOptions returns defaults for short-lived admin commands.
func DefaultAdminOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// OptionsFromEnv overrides defaults with DB_* env vars if present.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	var env envOptions
	if err := envconfig.Process("DB", &env); err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"err": err})
		return opts
	}
	if env.MaxOpenConns > 0 {
		opts.MaxOpenConns = env.MaxOpenConns
	}
	if env.MaxIdleConns > 0 {
		opts.MaxIdleConns = env.MaxIdleConns
	}
	if env.ConnMaxLifetime > 0 {
		opts.ConnMaxLifetime = env.ConnMaxLifetime
	}
	if env.ConnMaxIdleTime > 0 {
		opts.ConnMaxIdleTime = env.ConnMaxIdleTime
	}
	if env.PingTimeout > 0 {
		opts.PingTimeout = env.PingTimeout
	}
	return opts
}

// Connect opens a *sql.DB using the provided DATABASE_URL and verifies connectivity.
// The returned *sql.DB should be shared and re-used by callers.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.init")
	return db, nil
}

// GetSingleton returns a process-wide *sql.DB, initializing it once per execution environment.
// If initialization fails, a later call will retry until successful.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	if singletonDB != nil {
		singletonMu.Unlock()
		telemetry.Debug("db.singleton_reuse", nil)
		return singletonDB, nil
	}
	for singletonInFly && singletonDB == nil {
		singletonCond.Wait()
	}
	if singletonDB != nil {
		singletonMu.Unlock()
		telemetry.Debug("db.singleton_reuse", nil)
		return singletonDB, nil
	}
	singletonInFly = true
	singletonMu.Unlock()

	db, err := Connect(ctx, databaseURL, opts)

	singletonMu.Lock()
	if err == nil {
		singletonDB = db
	}
	singletonInFly = false
	singletonCond.Broadcast()
	singletonMu.Unlock()

	if err == nil {
		telemetry.Info("db.singleton_init", nil)
	}
	return singletonDB, err
}

// WithTx runs fn inside a transaction, committing on success and rolling back otherwise.
func WithTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return Classify(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return Classify(err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Classify maps connectivity failures and deadline overruns to ErrUnavailable.
// Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, sql.ErrConnDone),
		pgconn.Timeout(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, label string) {
	stats := db.Stats()
	telemetry.Info(label, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	})
}
