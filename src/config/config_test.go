package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("WORKLINK_TRACKER_PASSWORD", "")
	t.Setenv("GITHUB_TOKEN", "")
	ctx := context.Background()
	s := New()

	enabled, err := s.IsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	base, _ := s.BaseURL(ctx)
	assert.Equal(t, "https://github.com", base)

	prefix, _ := s.ReleaseNotePrefix(ctx)
	assert.Empty(t, prefix)

	assert.Equal(t, 8, s.MapperConcurrency())
	assert.Empty(t, s.RedpandaBrokers())
	assert.True(t, s.PushUpdates())
	assert.False(t, s.TelemetryEnabled())
}

func TestStore_Environment(t *testing.T) {
	t.Setenv("WORKLINK_TRACKER_ENABLED", "false")
	t.Setenv("WORKLINK_TRACKER_BASE_URL", "https://git.example.com/")
	t.Setenv("WORKLINK_TRACKER_RELEASE_NOTE_PREFIX", "Release note:")
	t.Setenv("WORKLINK_TRACKER_USERNAME", "octo")
	t.Setenv("WORKLINK_TRACKER_PASSWORD", "secret")
	t.Setenv("WORKLINK_REDPANDA_BROKERS", "localhost:19092, other:9092,")
	t.Setenv("WORKLINK_SERVER_URI", "https://deploy.example.com/")

	ctx := context.Background()
	s := New()

	enabled, _ := s.IsEnabled(ctx)
	assert.False(t, enabled)

	base, _ := s.BaseURL(ctx)
	assert.Equal(t, "https://git.example.com", base)

	prefix, _ := s.ReleaseNotePrefix(ctx)
	assert.Equal(t, "Release note:", prefix)

	creds, _ := s.Credentials(ctx)
	assert.Equal(t, "octo", creds.Username)
	assert.Equal(t, "secret", creds.Secret)

	assert.Equal(t, []string{"localhost:19092", "other:9092"}, s.RedpandaBrokers())

	uri, _ := s.ServerURI(ctx)
	assert.Equal(t, "https://deploy.example.com", uri)
}

func TestStore_ReadsFreshValues(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Setenv("WORKLINK_TRACKER_RELEASE_NOTE_PREFIX", "first")
	got, _ := s.ReleaseNotePrefix(ctx)
	assert.Equal(t, "first", got)

	t.Setenv("WORKLINK_TRACKER_RELEASE_NOTE_PREFIX", "second")
	got, _ = s.ReleaseNotePrefix(ctx)
	assert.Equal(t, "second", got)
}

func TestStore_GitHubTokenFallback(t *testing.T) {
	t.Setenv("WORKLINK_TRACKER_PASSWORD", "")
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	creds, _ := New().Credentials(context.Background())
	assert.Equal(t, "ghp_fallback", creds.Secret)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worklink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tracker:
  base_url: https://github.com
  release_note_prefix: "Release note:"
mapper:
  concurrency: 3
`), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)

	prefix, _ := s.ReleaseNotePrefix(context.Background())
	assert.Equal(t, "Release note:", prefix)
	assert.Equal(t, 3, s.MapperConcurrency())
}

func TestLoadFile_Missing(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestLoadFile_InvalidConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worklink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mapper:\n  concurrency: 0\n"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestStore_Set(t *testing.T) {
	s := New()
	s.Set(KeyTrackerEnabled, false)
	enabled, _ := s.IsEnabled(context.Background())
	assert.False(t, enabled)
}
