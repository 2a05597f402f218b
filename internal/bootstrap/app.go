package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/account"
	"resume-builder/internal/documents"
	"resume-builder/internal/identity"
	"resume-builder/internal/services/health"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Verifier identity.Verifier
	Admin    identity.Admin

	UsersRepo    users.Repo
	UsersService *users.Service
	UsersHandler *users.Handler

	DocumentServices map[string]*documents.Service
	DocumentHandlers []*documents.Handler

	AccountService *account.Service
	AccountHandler *account.Handler
}

// Option overrides a dependency Build would otherwise construct.
type Option func(*App)

// WithDB injects an already-open pool instead of connecting to DATABASE_URL.
func WithDB(database *sql.DB) Option {
	return func(a *App) { a.DB = database }
}

// WithVerifier injects the token verifier.
func WithVerifier(v identity.Verifier) Option {
	return func(a *App) { a.Verifier = v }
}

// WithAdmin injects the identity provider admin client.
func WithAdmin(admin identity.Admin) Option {
	return func(a *App) { a.Admin = admin }
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	cfg = config.Normalize(cfg)
	ctx := context.Background()

	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.DB == nil {
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.DB = sqlDB
	}
	if app.DB != nil && cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if app.Verifier == nil {
		verifier, err := buildVerifier(cfg)
		if err != nil {
			return nil, err
		}
		app.Verifier = verifier
	}
	if app.Admin == nil {
		admin, err := buildAdmin(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.Admin = admin
	}

	buildServices(app)

	handlers := []server.RouteRegistrar{app.UsersHandler, app.AccountHandler}
	for _, h := range app.DocumentHandlers {
		handlers = append(handlers, h)
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Verifier: app.Verifier,
		Health:   health.NewService(app.DB),
		Handlers: handlers,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":      cfg.Env,
		"storage":  storageKind(app.DB),
		"verifier": fmt.Sprintf("%T", app.Verifier),
		"policy":   cfg.UserDeletePolicy,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_storage", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		if cfg.DBMaxOpenConns > 0 {
			opts.MaxOpenConns = cfg.DBMaxOpenConns
		}
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_storage", map[string]any{"reason": "connect failed", "err": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildVerifier(cfg config.Config) (identity.Verifier, error) {
	if project := strings.TrimSpace(cfg.FirebaseProjectID); project != "" {
		keys := identity.NewJWKSSource(identity.JWKSOptions{
			URL: cfg.FirebaseJWKSURL,
			TTL: cfg.JWKSRefreshInterval,
		})
		return identity.NewFirebaseVerifier(project, keys), nil
	}
	if cfg.IsDevLike() && strings.TrimSpace(cfg.JWTSecret) != "" {
		telemetry.Warn("bootstrap.dev_verifier", map[string]any{"reason": "FIREBASE_PROJECT_ID empty"})
		return identity.NewHMACVerifier(cfg.JWTSecret), nil
	}
	return nil, errors.New("FIREBASE_PROJECT_ID is required (or JWT_SECRET in dev)")
}

func buildAdmin(ctx context.Context, cfg config.Config) (identity.Admin, error) {
	project := strings.TrimSpace(cfg.FirebaseProjectID)
	if project == "" {
		return identity.NoopAdmin{}, nil
	}
	admin, err := identity.NewIdentityToolkitAdmin(ctx, project, cfg.FirebaseServiceAccountPath)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.noop_admin", map[string]any{"err": err})
			return identity.NoopAdmin{}, nil
		}
		return nil, err
	}
	return admin, nil
}

func buildServices(app *App) {
	cfg := app.Config

	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
	}
	app.UsersService = users.NewService(app.UsersRepo)
	app.UsersService.WriteTimeout = cfg.DBWriteTimeout
	app.UsersHandler = users.NewHandler(app.UsersService)

	app.DocumentServices = make(map[string]*documents.Service)
	var stores []account.Store
	for _, coll := range documents.Collections() {
		var repo documents.Repo
		if app.DB != nil {
			repo = documents.NewPGRepo(app.DB, coll)
		} else {
			mem := documents.NewMemoryRepo()
			mem.OwnerExists = app.UsersRepo.Exists
			repo = mem
		}
		svc := documents.NewService(coll, repo)
		svc.WriteTimeout = cfg.DBWriteTimeout
		app.DocumentServices[coll.Name] = svc
		app.DocumentHandlers = append(app.DocumentHandlers, documents.NewHandler(svc))
		stores = append(stores, account.Store{Collection: coll, Repo: repo})
	}

	app.AccountService = account.NewService(app.UsersService, stores, app.Admin, cfg.UserDeletePolicy, cfg.AdminSubjects)
	app.AccountService.WriteTimeout = cfg.DBWriteTimeout
	app.AccountHandler = account.NewHandler(app.AccountService)
}

func storageKind(database *sql.DB) string {
	if database == nil {
		return "memory"
	}
	return "postgres"
}

// Close releases the pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
