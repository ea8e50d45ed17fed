package config

import (
	"os"
	"strconv"
	"time"
)

// ProviderMode selects the wallet provider implementation at startup.
type ProviderMode string

const (
	ProviderStub ProviderMode = "stub"
	ProviderHTTP ProviderMode = "http"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	ProviderMode      ProviderMode
	ProviderBaseURL   string
	ProviderKeyID     string
	ProviderKeySecret string

	PrivacySecret string
	ProgramName   string

	RetryBase        time.Duration
	RetryCap         time.Duration
	RetryMaxAttempts int
	SweepInterval    time.Duration

	RetentionWindow time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	// The privacy secret default is for development only; production must
	// override it or every external pass ID changes on redeploy.
	cfg := Server{
		Addr:              envOr("SELO_ADDR", ":8080"),
		ProviderMode:      ProviderStub,
		ProviderBaseURL:   os.Getenv("WALLET_PROVIDER_URL"),
		ProviderKeyID:     os.Getenv("WALLET_PROVIDER_KEY_ID"),
		ProviderKeySecret: os.Getenv("WALLET_PROVIDER_KEY_SECRET"),
		PrivacySecret:     envOr("PRIVACY_SECRET", "dev-secret-change-in-production"),
		ProgramName:       envOr("PROGRAM_NAME", "Loyalty Card"),
		RetryBase:         durationOr("RETRY_BASE", time.Second),
		RetryCap:          durationOr("RETRY_CAP", 30*time.Second),
		RetryMaxAttempts:  intOr("RETRY_MAX_ATTEMPTS", 3),
		SweepInterval:     durationOr("SWEEP_INTERVAL", 30*time.Second),
		RetentionWindow:   durationOr("RETENTION_WINDOW", 7*365*24*time.Hour),
	}
	if os.Getenv("WALLET_PROVIDER_MODE") == string(ProviderHTTP) {
		cfg.ProviderMode = ProviderHTTP
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
