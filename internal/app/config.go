package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"google.golang.org/api/option"
)

// defaultCredentialsPath is the last credential channel checked when neither
// the JSON env var nor GOOGLE_APPLICATION_CREDENTIALS is set.
const defaultCredentialsPath = "credentials/service-account.json"

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SentryDSN   string
	LogLevel    string
	AppVersion  string

	// Admission control
	MaxConnections      int
	MaxConnectionsPerIP int

	// Session behavior
	InactivityTimeout time.Duration

	// Google Cloud
	ProjectID       string
	Location        string
	GlossaryEnabled bool
	TranslationModel string // "nmt" or "advanced"

	// MT credentials, three channels in priority order
	CredentialsJSON string // inline service-account JSON
	CredentialsFile string // path to a key file

	// JWT Authentication (optional)
	JWTSecret string
}

func LoadConfigFromEnv() Config {
	addr := getenv("HTTP_ADDR", "")
	if addr == "" {
		addr = ":" + getenv("PORT", "8080")
	}

	return Config{
		HTTPAddr:    addr,
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		AppVersion:  getenv("APP_VERSION", "dev"),

		MaxConnections:      getenvInt("MAX_CONNECTIONS", 50),
		MaxConnectionsPerIP: getenvInt("MAX_CONNECTIONS_PER_IP", 5),

		InactivityTimeout: getenvDuration("INACTIVITY_TIMEOUT", 30*time.Minute),

		ProjectID:        getenv("GOOGLE_CLOUD_PROJECT", ""),
		Location:         getenv("GOOGLE_CLOUD_LOCATION", "global"),
		GlossaryEnabled:  getenvBool("GLOSSARY_ENABLED", true),
		TranslationModel: getenv("TRANSLATION_MODEL", "nmt"),

		CredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),

		JWTSecret: os.Getenv("JWT_SECRET"), // optional, no fallback
	}
}

// Validate fails fast on startup misconfiguration.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return errors.New("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.TranslationModel != "nmt" && c.TranslationModel != "advanced" {
		return fmt.Errorf("TRANSLATION_MODEL must be nmt or advanced, got %q", c.TranslationModel)
	}
	if _, err := c.credentialOptions(); err != nil {
		return err
	}
	return nil
}

// credentialOptions resolves the MT credentials from the three supported
// channels: inline JSON, explicit file path, default path.
func (c Config) credentialOptions() ([]option.ClientOption, error) {
	if c.CredentialsJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.CredentialsJSON))}, nil
	}
	if c.CredentialsFile != "" {
		if _, err := os.Stat(c.CredentialsFile); err != nil {
			return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS file not readable: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}, nil
	}
	if _, err := os.Stat(defaultCredentialsPath); err == nil {
		return []option.ClientOption{option.WithCredentialsFile(defaultCredentialsPath)}, nil
	}
	return nil, errors.New("no Google credentials: set GOOGLE_CREDENTIALS_JSON, GOOGLE_APPLICATION_CREDENTIALS, or provide " + defaultCredentialsPath)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Plain numbers are read as minutes.
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Minute
		}
	}
	return def
}
