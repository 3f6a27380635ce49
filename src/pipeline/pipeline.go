// Package pipeline submits build information for work-item mapping and reports
// on the result. It is used by both the CLI and the MCP server.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"worklink/src/broker"
	"worklink/src/contracts"
	"worklink/src/store"
)

// Mode selects where mapping happens.
type Mode int

const (
	// LocalMode maps in-process over an in-memory broker.
	LocalMode Mode = iota
	// AgenticMode publishes to Redpanda and stores results in Postgres; a
	// separate link agent does the mapping.
	AgenticMode
)

func (m Mode) String() string {
	switch m {
	case AgenticMode:
		return "agentic"
	default:
		return "local"
	}
}

// Config selects and configures a pipeline.
type Config struct {
	RedpandaBrokers []string
	PostgresDSN     string
	// SQLitePath persists local-mode results when set.
	SQLitePath string
}

// DetectMode picks agentic mode whenever Redpanda brokers are configured.
func DetectMode(cfg *Config) Mode {
	if len(cfg.RedpandaBrokers) > 0 {
		return AgenticMode
	}
	return LocalMode
}

// Pipeline accepts build information and exposes mapping results.
type Pipeline interface {
	// Submit queues a build for mapping and returns its request ID.
	Submit(ctx context.Context, build contracts.BuildInfo) (string, error)

	// Status returns the current status of a request.
	Status(ctx context.Context, requestID string) (*contracts.RequestStatus, error)

	// Links returns the mapped links of a request.
	Links(ctx context.Context, requestID string) ([]contracts.WorkItemLink, error)

	// Close shuts down the pipeline.
	Close() error
}

// ErrNotFinished is returned by Wait when ctx ends before the request completes.
var ErrNotFinished = errors.New("request did not finish")

// NewRequestID returns a fresh request ID.
func NewRequestID() string {
	return "req-" + uuid.NewString()
}

// Done reports whether a request status is terminal.
func Done(status string) bool {
	switch status {
	case contracts.StatusCompleted, contracts.StatusFailed, contracts.StatusDisabled:
		return true
	}
	return false
}

// Wait polls Status until the request reaches a terminal state.
func Wait(ctx context.Context, p Pipeline, requestID string, interval time.Duration) (*contracts.RequestStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := p.Status(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if Done(status.Status) {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, fmt.Errorf("%w: %s is %s: %v", ErrNotFinished, requestID, status.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

// results serves Status and Links from a store for both modes.
type results struct {
	store store.Store
}

func (r results) Status(ctx context.Context, requestID string) (*contracts.RequestStatus, error) {
	return r.store.GetRequestStatus(ctx, requestID)
}

func (r results) Links(ctx context.Context, requestID string) ([]contracts.WorkItemLink, error) {
	return r.store.GetLinks(ctx, requestID)
}

func submit(ctx context.Context, brk broker.Broker, st store.Store, build contracts.BuildInfo) (string, error) {
	requestID := NewRequestID()

	// Record the request first so Status never reports an unknown ID for a submitted build.
	if err := st.CreateRequest(ctx, requestID, build.VcsRoot); err != nil {
		return "", fmt.Errorf("failed to create request record: %w", err)
	}

	event := contracts.BuildInformationEvent{
		RequestID: requestID,
		Build:     build,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := broker.PublishJSON(ctx, brk, contracts.TopicBuildInformation, requestID, event); err != nil {
		return "", fmt.Errorf("failed to publish request: %w", err)
	}
	return requestID, nil
}
