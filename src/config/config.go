// Package config provides configuration management for worklink.
//
// Settings come from, in increasing priority: built-in defaults, an optional YAML
// file, a .env file in the working directory, and WORKLINK_* environment
// variables (tracker.base_url is WORKLINK_TRACKER_BASE_URL). Values are read on
// every call so a long-running agent sees changes without a restart.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"worklink/src/tracker"
)

const envPrefix = "WORKLINK"

const (
	KeyTrackerEnabled    = "tracker.enabled"
	KeyTrackerBaseURL    = "tracker.base_url"
	KeyReleaseNotePrefix = "tracker.release_note_prefix"
	KeyTrackerUsername   = "tracker.username"
	KeyTrackerPassword   = "tracker.password"
	KeyTrackerAPIURL     = "tracker.api_url"
	KeyMapperConcurrency = "mapper.concurrency"
	KeyRedpandaBrokers   = "redpanda.brokers"
	KeyPostgresDSN       = "postgres.dsn"
	KeySQLitePath        = "sqlite.path"
	KeyServerURI         = "server.uri"
	KeyPushUpdates       = "deployments.push_updates"
	KeyTelemetryEnabled  = "telemetry.enabled"
	KeyTelemetryEndpoint = "telemetry.otlp_endpoint"
)

const (
	defaultBaseURL       = "https://github.com"
	defaultMapperWorkers = 8
)

// Store is a live view over the layered configuration.
type Store struct {
	v *viper.Viper
}

// New returns a Store with defaults and environment binding but no file.
func New() *Store {
	v := viper.New()

	v.SetDefault(KeyTrackerEnabled, true)
	v.SetDefault(KeyTrackerBaseURL, defaultBaseURL)
	v.SetDefault(KeyMapperConcurrency, defaultMapperWorkers)
	v.SetDefault(KeyPushUpdates, true)
	v.SetDefault(KeyTelemetryEnabled, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// GITHUB_TOKEN is honoured when no worklink-specific secret is set.
	_ = v.BindEnv(KeyTrackerPassword, envPrefix+"_TRACKER_PASSWORD", "GITHUB_TOKEN")

	return &Store{v: v}
}

// LoadFromEnv loads .env (if present) and returns a Store backed by the environment.
func LoadFromEnv() (*Store, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	s := New()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile is LoadFromEnv plus a YAML file. A missing file is not an error.
func LoadFile(path string) (*Store, error) {
	s, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}

	s.v.SetConfigFile(path)
	s.v.SetConfigType("yaml")
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Store {
	s, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return s
}

// Validate checks values that would otherwise fail later in confusing ways.
func (s *Store) Validate() error {
	if s.v.GetInt(KeyMapperConcurrency) < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyMapperConcurrency, s.v.GetInt(KeyMapperConcurrency))
	}
	return nil
}

// Set overrides a key for the lifetime of the Store. CLI flags use it.
func (s *Store) Set(key string, value interface{}) {
	s.v.Set(key, value)
}

// IsEnabled reports whether the GitHub integration is switched on.
func (s *Store) IsEnabled(ctx context.Context) (bool, error) {
	return s.v.GetBool(KeyTrackerEnabled), nil
}

// BaseURL is the tracker's web root with trailing slashes removed.
func (s *Store) BaseURL(ctx context.Context) (string, error) {
	return strings.TrimRight(strings.TrimSpace(s.v.GetString(KeyTrackerBaseURL)), "/"), nil
}

func (s *Store) ReleaseNotePrefix(ctx context.Context) (string, error) {
	return s.v.GetString(KeyReleaseNotePrefix), nil
}

func (s *Store) Credentials(ctx context.Context) (tracker.Credentials, error) {
	return tracker.Credentials{
		Username: s.v.GetString(KeyTrackerUsername),
		Secret:   s.v.GetString(KeyTrackerPassword),
	}, nil
}

// ServerURI is the public URL of the deployment server, used for status links.
func (s *Store) ServerURI(ctx context.Context) (string, error) {
	return strings.TrimRight(strings.TrimSpace(s.v.GetString(KeyServerURI)), "/"), nil
}

// PushUpdates is the default for deployment events that do not say otherwise.
func (s *Store) PushUpdates() bool {
	return s.v.GetBool(KeyPushUpdates)
}

// APIURL is an explicit REST API root, or "" to derive it from the base URL.
func (s *Store) APIURL() string {
	return strings.TrimRight(strings.TrimSpace(s.v.GetString(KeyTrackerAPIURL)), "/")
}

func (s *Store) MapperConcurrency() int {
	return s.v.GetInt(KeyMapperConcurrency)
}

// RedpandaBrokers returns seed brokers. Setting any enables agentic mode.
func (s *Store) RedpandaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(s.v.GetString(KeyRedpandaBrokers), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (s *Store) PostgresDSN() string {
	return s.v.GetString(KeyPostgresDSN)
}

func (s *Store) SQLitePath() string {
	return s.v.GetString(KeySQLitePath)
}

func (s *Store) TelemetryEnabled() bool {
	return s.v.GetBool(KeyTelemetryEnabled)
}

func (s *Store) TelemetryEndpoint() string {
	return s.v.GetString(KeyTelemetryEndpoint)
}
