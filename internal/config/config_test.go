package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"ASKDB_AI_API_KEY": "test-key",
	})
	cfg, err := Load("askdb-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8001" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.MaxOpenConns != 20 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.AI.GenerateModel != "gemini-1.5-pro" {
		t.Fatalf("AI.GenerateModel = %q", cfg.AI.GenerateModel)
	}
	if cfg.AI.SynthesizeModel != "gemini-1.5-flash" {
		t.Fatalf("AI.SynthesizeModel = %q", cfg.AI.SynthesizeModel)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("AI.Timeout = %v", cfg.AI.Timeout)
	}
}

func TestRequireAIKeyFailsWithoutKey(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err = cfg.RequireAIKey()
	if err == nil {
		t.Fatal("RequireAIKey() should fail without ASKDB_AI_API_KEY")
	}
	if !strings.Contains(err.Error(), "ASKDB_AI_API_KEY") {
		t.Fatalf("error = %v, want mention of ASKDB_AI_API_KEY", err)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{
		"ASKDB_PROFILE":    "prod",
		"ASKDB_AI_API_KEY": "test-key",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q", cfg.Profile)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{
		"ASKDB_AI_API_KEY":        "test-key",
		"ASKDB_HTTP_ADDR":         ":9000",
		"ASKDB_DATABASE_URL":      "postgres://u:p@db:5432/app",
		"ASKDB_AI_GENERATE_MODEL": "gemini-2.0-flash",
		"ASKDB_AI_TIMEOUT":        "45s",
		"ASKDB_LOG_LEVEL":         "warn",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9000" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Database.DSN != "postgres://u:p@db:5432/app" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.AI.GenerateModel != "gemini-2.0-flash" {
		t.Fatalf("AI.GenerateModel = %q", cfg.AI.GenerateModel)
	}
	if cfg.AI.Timeout != 45*time.Second {
		t.Fatalf("AI.Timeout = %v", cfg.AI.Timeout)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	_, err := Load("askdb-api", mapLookup(map[string]string{
		"ASKDB_PROFILE":    "staging",
		"ASKDB_AI_API_KEY": "test-key",
	}))
	if err == nil {
		t.Fatal("Load() should reject unknown profile")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	_, err := Load("askdb-api", mapLookup(map[string]string{
		"ASKDB_AI_API_KEY": "test-key",
		"ASKDB_AI_TIMEOUT": "soon",
	}))
	if err == nil {
		t.Fatal("Load() should reject malformed duration")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
