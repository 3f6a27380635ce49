package pipeline

import (
	"context"
	"errors"
	"fmt"

	"worklink/src/broker"
	"worklink/src/contracts"
	"worklink/src/logger"
	"worklink/src/store"
)

// AgenticPipeline publishes builds to Redpanda and reads results from
// Postgres. Link agents started with `worklink agent` do the mapping.
type AgenticPipeline struct {
	results
	broker *broker.RedpandaBroker
}

// NewAgenticPipeline connects to Redpanda and Postgres. Both are required.
func NewAgenticPipeline(ctx context.Context, cfg *Config, log logger.Logger) (*AgenticPipeline, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("agentic mode requires a Postgres DSN (WORKLINK_POSTGRES_DSN)")
	}

	brk, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
	}

	st, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		brk.Close()
		return nil, fmt.Errorf("failed to create Postgres store: %w", err)
	}

	return &AgenticPipeline{results: results{store: st}, broker: brk}, nil
}

func (p *AgenticPipeline) Submit(ctx context.Context, build contracts.BuildInfo) (string, error) {
	return submit(ctx, p.broker, p.store, build)
}

// Close disconnects from Redpanda and Postgres.
func (p *AgenticPipeline) Close() error {
	return errors.Join(p.broker.Close(), p.store.Close())
}
