package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"worklink/src/config"
	"worklink/src/contracts"
	"worklink/src/github"
	"worklink/src/linkagent"
	"worklink/src/pipeline"
	"worklink/src/render"
	"worklink/src/store"
	"worklink/src/tracker"
	"worklink/src/workitems"
)

// newTrackerFactory picks the GitHub API root: an explicit tracker.api_url
// wins, then the root derived from an Enterprise base URL, then the
// registered github.com factory.
func newTrackerFactory(ctx context.Context, cfg *config.Store) (tracker.ClientFactory, error) {
	if apiURL := cfg.APIURL(); apiURL != "" {
		return github.NewFactory(strings.TrimRight(apiURL, "/")), nil
	}

	baseURL, err := cfg.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	if apiURL := github.APIBaseURL(baseURL); apiURL != github.DefaultAPIURL {
		return github.NewFactory(apiURL), nil
	}
	return tracker.GetFactory(github.TrackerName)
}

func newMapper(ctx context.Context, cfg *config.Store) (*workitems.Mapper, error) {
	factory, err := newTrackerFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return workitems.NewMapper(cfg, factory, log, workitems.WithConcurrency(cfg.MapperConcurrency())), nil
}

func pipelineConfig(cfg *config.Store) *pipeline.Config {
	return &pipeline.Config{
		RedpandaBrokers: cfg.RedpandaBrokers(),
		PostgresDSN:     cfg.PostgresDSN(),
		SQLitePath:      cfg.SQLitePath(),
	}
}

// openPipeline builds the pipeline for the configured mode. Only local mode
// maps in-process, so only it gets a mapper.
func openPipeline(ctx context.Context) (pipeline.Pipeline, pipeline.Mode, error) {
	cfg := pipelineConfig(appConfig)
	mode := pipeline.DetectMode(cfg)

	var mapper linkagent.Mapper
	if mode == pipeline.LocalMode {
		m, err := newMapper(ctx, appConfig)
		if err != nil {
			return nil, mode, err
		}
		mapper = m
	}

	p, err := pipeline.New(ctx, cfg, mapper, log)
	if err != nil {
		return nil, mode, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, mode, nil
}

// openStore opens the persistent store results are read from.
func openStore(ctx context.Context, cfg *config.Store) (store.Store, error) {
	switch {
	case cfg.PostgresDSN() != "":
		return store.NewPostgresStore(ctx, cfg.PostgresDSN())
	case cfg.SQLitePath() != "":
		return store.NewSQLiteStore(ctx, cfg.SQLitePath())
	default:
		return nil, errors.New("no persistent store configured: set WORKLINK_POSTGRES_DSN or WORKLINK_SQLITE_PATH")
	}
}

// readBuildInfo decodes BuildInfo JSON from path, or from stdin when path is
// empty or "-".
func readBuildInfo(path string, stdin io.Reader) (contracts.BuildInfo, error) {
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return contracts.BuildInfo{}, err
		}
		defer f.Close()
		r = f
	}

	var build contracts.BuildInfo
	if err := json.NewDecoder(r).Decode(&build); err != nil {
		return contracts.BuildInfo{}, fmt.Errorf("invalid build information: %w", err)
	}
	return build, nil
}

func readDeploymentEvent(path string, stdin io.Reader) (contracts.DeploymentEvent, error) {
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return contracts.DeploymentEvent{}, err
		}
		defer f.Close()
		r = f
	}

	var event contracts.DeploymentEvent
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		return contracts.DeploymentEvent{}, fmt.Errorf("invalid deployment event: %w", err)
	}
	return event, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func styles(plain bool) render.Styles {
	if plain {
		return render.PlainStyles()
	}
	return render.DefaultStyles()
}
