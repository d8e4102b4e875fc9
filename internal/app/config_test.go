package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("MAX_CONNECTIONS", "")
	t.Setenv("MAX_CONNECTIONS_PER_IP", "")
	t.Setenv("INACTIVITY_TIMEOUT", "")
	t.Setenv("GLOSSARY_ENABLED", "")
	t.Setenv("TRANSLATION_MODEL", "")

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.MaxConnections != 50 {
		t.Errorf("MaxConnections = %d, want 50", cfg.MaxConnections)
	}
	if cfg.MaxConnectionsPerIP != 5 {
		t.Errorf("MaxConnectionsPerIP = %d, want 5", cfg.MaxConnectionsPerIP)
	}
	if cfg.InactivityTimeout != 30*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 30m", cfg.InactivityTimeout)
	}
	if !cfg.GlossaryEnabled {
		t.Error("GlossaryEnabled should default to true")
	}
	if cfg.TranslationModel != "nmt" {
		t.Errorf("TranslationModel = %q, want nmt", cfg.TranslationModel)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_CONNECTIONS", "10")
	t.Setenv("MAX_CONNECTIONS_PER_IP", "2")
	t.Setenv("INACTIVITY_TIMEOUT", "5m")
	t.Setenv("GLOSSARY_ENABLED", "false")
	t.Setenv("TRANSLATION_MODEL", "advanced")

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.MaxConnections != 10 || cfg.MaxConnectionsPerIP != 2 {
		t.Errorf("caps = %d/%d, want 10/2", cfg.MaxConnections, cfg.MaxConnectionsPerIP)
	}
	if cfg.InactivityTimeout != 5*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 5m", cfg.InactivityTimeout)
	}
	if cfg.GlossaryEnabled {
		t.Error("GlossaryEnabled should be false")
	}
	if cfg.TranslationModel != "advanced" {
		t.Errorf("TranslationModel = %q, want advanced", cfg.TranslationModel)
	}
}

func TestInactivityTimeoutPlainMinutes(t *testing.T) {
	t.Setenv("INACTIVITY_TIMEOUT", "45")
	cfg := LoadConfigFromEnv()
	if cfg.InactivityTimeout != 45*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 45m", cfg.InactivityTimeout)
	}
}

func TestValidateRequiresProject(t *testing.T) {
	cfg := Config{TranslationModel: "nmt", CredentialsJSON: "{}"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should fail without GOOGLE_CLOUD_PROJECT")
	}
}

func TestValidateRejectsUnknownModel(t *testing.T) {
	cfg := Config{ProjectID: "p", TranslationModel: "turbo", CredentialsJSON: "{}"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject unknown TRANSLATION_MODEL")
	}
}

func TestCredentialChannels(t *testing.T) {
	// Inline JSON wins.
	cfg := Config{ProjectID: "p", TranslationModel: "nmt", CredentialsJSON: `{"type":"service_account"}`}
	if opts, err := cfg.credentialOptions(); err != nil || len(opts) != 1 {
		t.Errorf("inline JSON: opts=%d err=%v", len(opts), err)
	}

	// Explicit file path must exist.
	cfg = Config{ProjectID: "p", TranslationModel: "nmt", CredentialsFile: "/nonexistent/key.json"}
	if _, err := cfg.credentialOptions(); err == nil {
		t.Error("missing credentials file should fail fast")
	}

	keyFile := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(keyFile, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg = Config{ProjectID: "p", TranslationModel: "nmt", CredentialsFile: keyFile}
	if opts, err := cfg.credentialOptions(); err != nil || len(opts) != 1 {
		t.Errorf("file path: opts=%d err=%v", len(opts), err)
	}

	// No channel at all fails fast.
	cfg = Config{ProjectID: "p", TranslationModel: "nmt"}
	if _, err := cfg.credentialOptions(); err == nil {
		t.Error("absent credentials should fail fast")
	}
}
