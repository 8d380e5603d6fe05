package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range os.Environ() {
		name := strings.SplitN(key, "=", 2)[0]
		if strings.HasPrefix(name, "CHRONOLEX_") {
			t.Setenv(name, "")
		}
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != 6480 {
		t.Errorf("default port = %d, want 6480", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("default host = %q", cfg.Server.Host)
	}
	if cfg.Storage.Engine != "sqlite" {
		t.Errorf("default engine = %q", cfg.Storage.Engine)
	}
	if cfg.Delegate.Enabled {
		t.Error("delegate enabled by default")
	}
	if cfg.Delegate.Provider != "ollama" {
		t.Errorf("default provider = %q", cfg.Delegate.Provider)
	}
	if cfg.Builder.NumWorkers != 4 {
		t.Errorf("default workers = %d", cfg.Builder.NumWorkers)
	}
	if cfg.Builder.UnitTimeout != 30*time.Second {
		t.Errorf("default unit timeout = %v", cfg.Builder.UnitTimeout)
	}
	if cfg.Builder.DelegateRPS != 2 {
		t.Errorf("default delegate rps = %v", cfg.Builder.DelegateRPS)
	}
	if cfg.Builder.CacheSize != 32 {
		t.Errorf("default cache size = %d", cfg.Builder.CacheSize)
	}
	if cfg.Security.Mode != "development" {
		t.Errorf("default security mode = %q", cfg.Security.Mode)
	}
	if cfg.Intake.Enabled {
		t.Error("intake enabled by default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CHRONOLEX_PORT", "7000")
	t.Setenv("CHRONOLEX_HOST", "0.0.0.0")
	t.Setenv("CHRONOLEX_STORAGE_ENGINE", "postgres")
	t.Setenv("CHRONOLEX_POSTGRES_DSN", "postgres://localhost/chronolex")
	t.Setenv("CHRONOLEX_DELEGATE_ENABLED", "true")
	t.Setenv("CHRONOLEX_DELEGATE_PROVIDER", "anthropic")
	t.Setenv("CHRONOLEX_NUM_WORKERS", "8")
	t.Setenv("CHRONOLEX_UNIT_TIMEOUT", "2m")
	t.Setenv("CHRONOLEX_DELEGATE_RPS", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != 7000 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Storage.Engine != "postgres" || cfg.Storage.PostgresDSN == "" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Delegate.Enabled || cfg.Delegate.Provider != "anthropic" {
		t.Errorf("delegate = %+v", cfg.Delegate)
	}
	if cfg.Builder.NumWorkers != 8 {
		t.Errorf("workers = %d", cfg.Builder.NumWorkers)
	}
	if cfg.Builder.UnitTimeout != 2*time.Minute {
		t.Errorf("unit timeout = %v", cfg.Builder.UnitTimeout)
	}
	if cfg.Builder.DelegateRPS != 0.5 {
		t.Errorf("delegate rps = %v", cfg.Builder.DelegateRPS)
	}
}

func TestLoadConfigBadValuesFallBack(t *testing.T) {
	t.Setenv("CHRONOLEX_PORT", "not-a-number")
	t.Setenv("CHRONOLEX_UNIT_TIMEOUT", "soon")
	t.Setenv("CHRONOLEX_DELEGATE_ENABLED", "maybe")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 6480 {
		t.Errorf("port = %d, want default on bad value", cfg.Server.Port)
	}
	if cfg.Builder.UnitTimeout != 30*time.Second {
		t.Errorf("unit timeout = %v, want default on bad value", cfg.Builder.UnitTimeout)
	}
	if cfg.Delegate.Enabled {
		t.Error("delegate enabled on unparseable boolean")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 6480, Host: "127.0.0.1"},
			Storage:  StorageConfig{Engine: "sqlite", DataPath: "./data"},
			Security: SecurityConfig{Mode: "development"},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 accepted")
	}

	cfg = base()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("port 70000 accepted")
	}

	cfg = base()
	cfg.Storage.Engine = "mongodb"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown engine accepted")
	}

	cfg = base()
	cfg.Storage.Engine = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("postgres without DSN accepted")
	}
	cfg.Storage.PostgresDSN = "postgres://localhost/chronolex"
	if err := cfg.Validate(); err != nil {
		t.Errorf("postgres with DSN rejected: %v", err)
	}

	cfg = base()
	cfg.Security.Mode = "production"
	if err := cfg.Validate(); err == nil {
		t.Error("production without token accepted")
	}
	cfg.Security.APIToken = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("production with token rejected: %v", err)
	}
}

func TestLoadKeywordOverrides(t *testing.T) {
	cfg := &Config{}
	if err := cfg.LoadKeywordOverrides(); err != nil {
		t.Fatalf("empty keyword file should be a no-op: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	overlay := "importance_weights:\n  mise en examen: 10\nact_synonyms:\n  perquisitions:\n    - perquisition\n"
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Builder.KeywordFile = path
	if err := cfg.LoadKeywordOverrides(); err != nil {
		t.Fatalf("LoadKeywordOverrides: %v", err)
	}

	cfg.Builder.KeywordFile = filepath.Join(dir, "missing.yaml")
	if err := cfg.LoadKeywordOverrides(); err == nil {
		t.Error("missing configured file accepted")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(":\t{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Builder.KeywordFile = bad
	if err := cfg.LoadKeywordOverrides(); err == nil {
		t.Error("unparseable file accepted")
	}
}
