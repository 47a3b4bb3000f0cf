package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
storage:
  driver: "postgres"
  database:
    host: "localhost"
    port: 5432
    name: "liftlog"
    user: "liftlog"
    password: "secret"
    sslmode: "disable"
program:
  path: "program.json"
auth:
  api_key: "test-key-123"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("storage.driver = %q, want %q", cfg.Storage.Driver, "postgres")
	}
	if cfg.Storage.Database.Name != "liftlog" {
		t.Errorf("storage.database.name = %q, want %q", cfg.Storage.Database.Name, "liftlog")
	}
	if cfg.Program.Path != "program.json" {
		t.Errorf("program.path = %q, want %q", cfg.Program.Path, "program.json")
	}
	if cfg.Auth.APIKey != "test-key-123" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "test-key-123")
	}
}

// TestSQLiteDefaults verifies that an omitted storage section falls back to
// a local SQLite file.
func TestSQLiteDefaults(t *testing.T) {
	yaml := `
server:
  port: 8080
program:
  path: "program.json"
auth:
  api_key: "key"
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("storage.driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "liftlog.db" {
		t.Errorf("storage.path = %q, want liftlog.db", cfg.Storage.Path)
	}
}

// TestEnvOverride verifies that LIFTLOG_ env vars take precedence over YAML values.
// This ensures production deployments can override config via environment.
func TestEnvOverride(t *testing.T) {
	t.Setenv("LIFTLOG_DB_HOST", "override-host")
	t.Setenv("LIFTLOG_DB_PORT", "9999")
	t.Setenv("LIFTLOG_AUTH_API_KEY", "env-key")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Database.Host != "override-host" {
		t.Errorf("database.host = %q, want %q", cfg.Storage.Database.Host, "override-host")
	}
	if cfg.Storage.Database.Port != 9999 {
		t.Errorf("database.port = %d, want 9999", cfg.Storage.Database.Port)
	}
	if cfg.Auth.APIKey != "env-key" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "env-key")
	}
	// Unchanged fields should keep YAML values
	if cfg.Storage.Database.Name != "liftlog" {
		t.Errorf("database.name = %q, want %q", cfg.Storage.Database.Name, "liftlog")
	}
}

// TestValidationMissingPort verifies that missing required fields produce a clear error.
// Prevents starting the server with incomplete configuration.
func TestValidationMissingPort(t *testing.T) {
	yaml := `
server:
  host: "0.0.0.0"
program:
  path: "program.json"
auth:
  api_key: "key"
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing port")
	}
}

// TestValidationMissingProgram verifies that the program file path is required.
// Without a program definition nothing can be resolved or started.
func TestValidationMissingProgram(t *testing.T) {
	yaml := `
server:
  port: 8080
auth:
  api_key: "key"
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing program path")
	}
}

// TestValidationBadDriver verifies that unknown storage drivers are rejected.
func TestValidationBadDriver(t *testing.T) {
	yaml := `
server:
  port: 8080
storage:
  driver: "redis"
program:
  path: "program.json"
auth:
  api_key: "key"
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for unknown driver")
	}
}

// TestDSN verifies the Postgres connection string format.
func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "liftlog", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/liftlog?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
