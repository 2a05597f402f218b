package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("ADMIN_SUBJECTS", "admin-1,admin-2")
	t.Setenv("USER_DELETE_POLICY", "CASCADE")
	t.Setenv("DB_WRITE_TIMEOUT", "3s")
	t.Setenv("FIREBASE_PROJECT_ID", "demo-project")

	cfg := Load()

	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowOrigin)
	}
	if len(cfg.AdminSubjects) != 2 {
		t.Fatalf("unexpected admin subjects: %v", cfg.AdminSubjects)
	}
	if cfg.UserDeletePolicy != DeletePolicyCascade {
		t.Fatalf("expected cascade policy, got %q", cfg.UserDeletePolicy)
	}
	if cfg.DBWriteTimeout != 3*time.Second {
		t.Fatalf("expected 3s write timeout, got %s", cfg.DBWriteTimeout)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := Normalize(Config{Env: "something", UserDeletePolicy: "nope"})
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like")
	}
	if cfg.UserDeletePolicy != DeletePolicyRetain {
		t.Fatalf("expected retain policy, got %q", cfg.UserDeletePolicy)
	}
	if cfg.DBMaxOpenConns != 10 || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CFG_TEST_A=from-file\nCFG_TEST_B=\"quoted\"\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFG_TEST_A", "from-env")
	t.Cleanup(func() { os.Unsetenv("CFG_TEST_B") })

	loadEnvFiles(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("CFG_TEST_A"); got != "from-env" {
		t.Fatalf("expected env to win, got %q", got)
	}
	if got := os.Getenv("CFG_TEST_B"); got != "quoted" {
		t.Fatalf("expected quoted value from file, got %q", got)
	}
}
