package workitems

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"worklink/src/contracts"
	"worklink/src/logger"
	"worklink/src/telemetry"
	"worklink/src/tracker"
)

// TrackerName is the Source stamped on every link this package produces.
const TrackerName = "GitHub"

// foreignVcsMarker identifies Azure DevOps style remotes, whose commit syntax uses
// "#123" for its own work items.
const foreignVcsMarker = "/_git/"

const scopeName = "worklink/workitems"

var (
	// ErrBaseURLNotConfigured is returned when the integration is enabled without a base URL.
	ErrBaseURLNotConfigured = errors.New("Base Url is not configured")
	// ErrNoVcsRoot is returned when build information carries no VCS root.
	ErrNoVcsRoot = errors.New("No VCS root configured")

	errNoClientFactory = errors.New("no issue tracker client factory configured")
)

// Settings is the read-only configuration the mapper queries on every call.
type Settings interface {
	IsEnabled(ctx context.Context) (bool, error)
	BaseURL(ctx context.Context) (string, error)
	ReleaseNotePrefix(ctx context.Context) (string, error)
	Credentials(ctx context.Context) (tracker.Credentials, error)
}

// Status is the outcome of a mapping call.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusDisabled Status = "disabled"
)

// Result is what Map hands back. Links is non-nil on success.
type Result struct {
	Status Status
	Links  []contracts.WorkItemLink
	Err    error
}

// Message is a short diagnostic suitable for showing to a user.
func (r Result) Message() string {
	switch r.Status {
	case StatusDisabled:
		return "GitHub issue tracker integration is disabled"
	case StatusFailed:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "mapping failed"
	default:
		return fmt.Sprintf("%d work item link(s)", len(r.Links))
	}
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithConcurrency bounds how many references are resolved at once.
func WithConcurrency(n int) Option {
	return func(m *Mapper) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithReleaseNoteResolver swaps the resolver used for descriptions.
func WithReleaseNoteResolver(r *ReleaseNoteResolver) Option {
	return func(m *Mapper) {
		if r != nil {
			m.resolver = r
		}
	}
}

// Mapper turns build information into a deduplicated list of work-item links.
// It holds no per-call state and is safe for concurrent use.
type Mapper struct {
	settings    Settings
	factory     tracker.ClientFactory
	logger      logger.Logger
	resolver    *ReleaseNoteResolver
	concurrency int

	tracer   trace.Tracer
	mapped   metric.Int64Counter
	degraded metric.Int64Counter
}

func NewMapper(settings Settings, factory tracker.ClientFactory, log logger.Logger, opts ...Option) *Mapper {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	if factory == nil {
		factory = tracker.ClientFactoryFunc(func(context.Context, tracker.Credentials) (tracker.Client, error) {
			return nil, errNoClientFactory
		})
	}
	m := &Mapper{
		settings:    settings,
		factory:     factory,
		logger:      log,
		concurrency: 8,
		tracer:      telemetry.Tracer(scopeName),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.resolver == nil {
		m.resolver = NewReleaseNoteResolver(log)
	}

	meter := telemetry.Meter(scopeName)
	m.mapped = int64Counter(meter, log, "worklink.links.mapped",
		"Work item links returned by the mapper")
	m.degraded = int64Counter(meter, log, "worklink.references.degraded",
		"References whose description fell back to the issue number")
	return m
}

// int64Counter falls back to a noop counter when the meter rejects the instrument.
func int64Counter(meter metric.Meter, log logger.Logger, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil || counter == nil {
		log.Warn("[Mapper] Failed to create counter %s: %v", name, err)
		return metricnoop.Int64Counter{}
	}
	return counter
}

// Map resolves every work-item reference in build.
//
// Configuration problems produce a StatusFailed result with a nil error; the error
// return is reserved for cancellation, in which case no links are returned.
func (m *Mapper) Map(ctx context.Context, build contracts.BuildInfo) (Result, error) {
	ctx, span := m.tracer.Start(ctx, "workitems.Map",
		trace.WithAttributes(
			attribute.String("vcs.root", build.VcsRoot),
			attribute.Int("vcs.commits", len(build.Commits)),
		))
	defer span.End()

	result, err := m.mapBuild(ctx, build)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.String("worklink.status", string(result.Status)))
	if result.Status == StatusSuccess {
		m.mapped.Add(ctx, int64(len(result.Links)))
	}
	return result, nil
}

func (m *Mapper) mapBuild(ctx context.Context, build contracts.BuildInfo) (Result, error) {
	enabled, err := m.settings.IsEnabled(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read enabled setting: %w", err)
	}
	if !enabled {
		return Result{Status: StatusDisabled}, nil
	}

	baseURL, err := m.settings.BaseURL(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read base URL setting: %w", err)
	}
	if strings.TrimSpace(baseURL) == "" {
		return Result{Status: StatusFailed, Err: ErrBaseURLNotConfigured}, nil
	}

	if build.VcsRoot == "" {
		return Result{Status: StatusFailed, Err: ErrNoVcsRoot}, nil
	}

	if strings.Contains(build.VcsRoot, foreignVcsMarker) {
		m.logger.Warn("[Mapper] The VCS root '%s' indicates this build information is Azure DevOps related so GitHub comment references will be ignored", build.VcsRoot)
		return Result{Status: StatusSuccess, Links: []contracts.WorkItemLink{}}, nil
	}

	refs := ExtractReferences(build)
	if len(refs) == 0 {
		return Result{Status: StatusSuccess, Links: []contracts.WorkItemLink{}}, nil
	}

	prefix, err := m.settings.ReleaseNotePrefix(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read release note prefix setting: %w", err)
	}

	client := m.newClient(ctx)

	links := make([]contracts.WorkItemLink, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			description := m.resolver.Resolve(gctx, client, build.VcsRoot, ref.IssueNumber, ref.LinkData, prefix)
			if description == ref.IssueNumber {
				m.degraded.Add(gctx, 1)
			}
			links[i] = contracts.WorkItemLink{
				ID:          ref.IssueNumber,
				Description: description,
				LinkURL:     NormalizeLinkData(baseURL, build.VcsRoot, ref.LinkData),
				Source:      TrackerName,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return Result{Status: StatusSuccess, Links: dedupe(links)}, nil
}

// newClient builds the tracker client for this call. A client that cannot be built
// degrades every reference instead of failing the mapping.
func (m *Mapper) newClient(ctx context.Context) tracker.IssueClient {
	creds, err := m.settings.Credentials(ctx)
	if err == nil {
		var client tracker.Client
		client, err = m.factory.NewClient(ctx, creds)
		if err == nil {
			return client
		}
	}
	m.logger.Warn("[Mapper] Issue tracker client unavailable, descriptions fall back to issue numbers: %v", err)
	return unavailableClient{err: err}
}

// dedupe drops repeated links, keeping the first occurrence.
func dedupe(links []contracts.WorkItemLink) []contracts.WorkItemLink {
	seen := make(map[contracts.WorkItemLink]struct{}, len(links))
	out := make([]contracts.WorkItemLink, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}

type unavailableClient struct {
	err error
}

func (c unavailableClient) GetIssue(context.Context, string, string, int) (*tracker.Issue, error) {
	return nil, c.err
}

func (c unavailableClient) GetIssueComments(context.Context, string, string, int) ([]tracker.Comment, error) {
	return nil, c.err
}
