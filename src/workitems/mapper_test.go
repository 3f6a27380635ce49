package workitems

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"worklink/src/contracts"
	"worklink/src/logger"
	"worklink/src/tracker"
)

type stubSettings struct {
	enabled bool
	baseURL string
	prefix  string
	creds   tracker.Credentials
	err     error
}

func (s stubSettings) IsEnabled(context.Context) (bool, error) {
	return s.enabled, s.err
}

func (s stubSettings) BaseURL(context.Context) (string, error) {
	return s.baseURL, nil
}

func (s stubSettings) ReleaseNotePrefix(context.Context) (string, error) {
	return s.prefix, nil
}

func (s stubSettings) Credentials(context.Context) (tracker.Credentials, error) {
	return s.creds, nil
}

func enabledSettings() stubSettings {
	return stubSettings{enabled: true, baseURL: "https://github.com", prefix: "Release note:"}
}

func factoryFor(client tracker.Client) tracker.ClientFactory {
	return tracker.ClientFactoryFunc(func(ctx context.Context, creds tracker.Credentials) (tracker.Client, error) {
		return client, nil
	})
}

func TestMapper_Preconditions(t *testing.T) {
	tests := []struct {
		name       string
		settings   stubSettings
		vcsRoot    string
		wantStatus Status
		wantErr    error
	}{
		{
			name:       "disabled",
			settings:   stubSettings{enabled: false, baseURL: "https://github.com"},
			vcsRoot:    "https://github.com/UserX/RepoY",
			wantStatus: StatusDisabled,
		},
		{
			name:       "disabled wins over missing base URL",
			settings:   stubSettings{enabled: false},
			vcsRoot:    "",
			wantStatus: StatusDisabled,
		},
		{
			name:       "missing base URL",
			settings:   stubSettings{enabled: true},
			vcsRoot:    "https://github.com/UserX/RepoY",
			wantStatus: StatusFailed,
			wantErr:    ErrBaseURLNotConfigured,
		},
		{
			name:       "whitespace base URL",
			settings:   stubSettings{enabled: true, baseURL: "   "},
			vcsRoot:    "https://github.com/UserX/RepoY",
			wantStatus: StatusFailed,
			wantErr:    ErrBaseURLNotConfigured,
		},
		{
			name:       "missing VCS root",
			settings:   enabledSettings(),
			vcsRoot:    "",
			wantStatus: StatusFailed,
			wantErr:    ErrNoVcsRoot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeTracker()
			m := NewMapper(tt.settings, factoryFor(client), logger.NewSilentLogger())

			res, err := m.Map(context.Background(), contracts.BuildInfo{
				VcsRoot: tt.vcsRoot,
				Commits: []contracts.Commit{{ID: "abc", Comment: "Fixes #1"}},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
				assert.Equal(t, tt.wantErr.Error(), res.Message())
			}
			assert.Empty(t, res.Links)
			assert.Zero(t, client.calls())
		})
	}
}

func TestMapper_SettingsError(t *testing.T) {
	m := NewMapper(stubSettings{err: errors.New("settings store down")}, factoryFor(newFakeTracker()), nil)
	_, err := m.Map(context.Background(), contracts.BuildInfo{VcsRoot: "https://github.com/UserX/RepoY"})
	assert.Error(t, err)
}

func TestMapper_ForeignVcs(t *testing.T) {
	const root = "https://dev.azure.com/org/project/_git/repo"
	client := newFakeTracker()
	log := &recordingLogger{}
	m := NewMapper(enabledSettings(), factoryFor(client), log)

	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: root,
		Commits: []contracts.Commit{{ID: "abc", Comment: "Fixes #1234"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.NotNil(t, res.Links)
	assert.Empty(t, res.Links)

	warns := log.warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], root)
	assert.Zero(t, client.calls())
}

func TestMapper_MapsReferences(t *testing.T) {
	client := newFakeTracker()
	client.addIssue("UserX", "RepoY", 1234, "Fix the widget", "Release note: Widgets no longer explode")
	client.addIssue("UserX", "RepoY", 99, "Title only")
	client.addIssue("OrgA", "RepoB", 5, "Cross repo issue")

	m := NewMapper(enabledSettings(), factoryFor(client), logger.NewSilentLogger())
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX/RepoY",
		Commits: []contracts.Commit{
			{ID: "c1", Comment: "Fixes #1234 and closes OrgA/RepoB#5"},
			{ID: "c2", Comment: "resolves GH-99"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)

	want := []contracts.WorkItemLink{
		{ID: "1234", Description: "Widgets no longer explode", LinkURL: "https://github.com/UserX/RepoY/issues/1234", Source: "GitHub"},
		{ID: "5", Description: "Cross repo issue", LinkURL: "https://github.com/OrgA/RepoB/issues/5", Source: "GitHub"},
		{ID: "99", Description: "Title only", LinkURL: "https://github.com/UserX/RepoY/issues/99", Source: "GitHub"},
	}
	assert.Equal(t, want, res.Links)
}

func TestMapper_Deduplicates(t *testing.T) {
	client := newFakeTracker()
	client.addIssue("UserX", "RepoY", 1234, "Shared issue")

	m := NewMapper(enabledSettings(), factoryFor(client), nil)
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX/RepoY",
		Commits: []contracts.Commit{
			{ID: "c1", Comment: "Fixes #1234"},
			{ID: "c2", Comment: "Closes #1234"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "1234", res.Links[0].ID)
	assert.Equal(t, "Shared issue", res.Links[0].Description)
}

func TestMapper_KeepsExtractionOrderUnderConcurrency(t *testing.T) {
	client := newFakeTracker()
	var comments []string
	for i := 1; i <= 40; i++ {
		client.addIssue("UserX", "RepoY", i, "Issue")
		comments = append(comments, "fixes #"+strconv.Itoa(i))
	}

	m := NewMapper(enabledSettings(), factoryFor(client), nil, WithConcurrency(4))
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX/RepoY",
		Commits: []contracts.Commit{{ID: "c1", Comment: strings.Join(comments, " ")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Links, 40)
	for i, link := range res.Links {
		assert.Equal(t, strconv.Itoa(i+1), link.ID)
	}
}

func TestMapper_RemoteErrorDegrades(t *testing.T) {
	client := newFakeTracker()
	client.issueErr = errors.New("502 bad gateway")

	m := NewMapper(enabledSettings(), factoryFor(client), nil)
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX/RepoY",
		Commits: []contracts.Commit{{ID: "c1", Comment: "Fixes #1234"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "1234", res.Links[0].Description)
	assert.Equal(t, "https://github.com/UserX/RepoY/issues/1234", res.Links[0].LinkURL)
}

func TestMapper_OwnerRepoFailureDegrades(t *testing.T) {
	client := newFakeTracker()
	m := NewMapper(enabledSettings(), factoryFor(client), nil)
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX",
		Commits: []contracts.Commit{{ID: "c1", Comment: "Fixes #1234"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "1234", res.Links[0].Description)
	assert.Equal(t, "https://github.com/UserX/issues/1234", res.Links[0].LinkURL)
}

func TestMapper_ClientFactoryFailureDegrades(t *testing.T) {
	failing := tracker.ClientFactoryFunc(func(ctx context.Context, creds tracker.Credentials) (tracker.Client, error) {
		return nil, errors.New("no transport")
	})
	m := NewMapper(enabledSettings(), failing, nil)
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX/RepoY",
		Commits: []contracts.Commit{{ID: "c1", Comment: "Fixes #7"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "7", res.Links[0].Description)
}

func TestMapper_NilFactoryDegrades(t *testing.T) {
	m := NewMapper(enabledSettings(), nil, nil)
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX/RepoY",
		Commits: []contracts.Commit{{ID: "c1", Comment: "Fixes #7 and closes #8"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Links, 2)
	assert.Equal(t, "7", res.Links[0].Description)
	assert.Equal(t, "8", res.Links[1].Description)
}

type rejectingMeter struct {
	metricnoop.Meter
}

func (rejectingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument rejected")
}

func TestInt64Counter_FallsBackOnError(t *testing.T) {
	counter := int64Counter(rejectingMeter{}, logger.NewSilentLogger(), "worklink.test", "test counter")
	require.NotNil(t, counter)
	assert.NotPanics(t, func() { counter.Add(context.Background(), 1) })
}

func TestMapper_NoReferences(t *testing.T) {
	client := newFakeTracker()
	m := NewMapper(enabledSettings(), factoryFor(client), nil)
	res, err := m.Map(context.Background(), contracts.BuildInfo{
		VcsRoot: "https://github.com/UserX/RepoY",
		Commits: []contracts.Commit{{ID: "c1", Comment: "Refactor without issue"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.NotNil(t, res.Links)
	assert.Empty(t, res.Links)
}

func TestMapper_Cancellation(t *testing.T) {
	client := newFakeTracker()
	client.addIssue("UserX", "RepoY", 1, "One")
	client.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	m := NewMapper(enabledSettings(), factoryFor(client), nil)

	done := make(chan struct{})
	var res Result
	var err error
	go func() {
		defer close(done)
		res, err = m.Map(ctx, contracts.BuildInfo{
			VcsRoot: "https://github.com/UserX/RepoY",
			Commits: []contracts.Commit{{ID: "c1", Comment: "Fixes #1"}},
		})
	}()

	require.Eventually(t, func() bool { return client.calls() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Map did not return after cancellation")
	}
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res.Links)
}
