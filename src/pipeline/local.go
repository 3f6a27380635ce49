package pipeline

import (
	"context"
	"errors"
	"fmt"

	"worklink/src/broker"
	"worklink/src/contracts"
	"worklink/src/linkagent"
	"worklink/src/logger"
	"worklink/src/store"
)

// LocalPipeline runs a link agent in-process over an in-memory broker.
type LocalPipeline struct {
	results
	broker *broker.InMemoryBroker
	stop   context.CancelFunc
	done   chan struct{}
}

// NewLocalPipeline starts a link agent backed by SQLite when cfg.SQLitePath is
// set and by memory otherwise. The agent outlives ctx until Close.
func NewLocalPipeline(ctx context.Context, cfg *Config, mapper linkagent.Mapper, log logger.Logger) (*LocalPipeline, error) {
	if mapper == nil {
		return nil, errors.New("local mode requires a mapper")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}

	var st store.Store = store.NewInMemoryStore()
	if cfg.SQLitePath != "" {
		sqlite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		st = sqlite
	}

	brk := broker.NewInMemoryBroker()
	brk.SetLogger(log)

	agentCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	agent := linkagent.NewAgent(brk, mapper, st, log)

	// Subscribe before returning so the first Submit cannot be missed.
	msgs, err := agent.Subscribe(agentCtx)
	if err != nil {
		stop()
		return nil, errors.Join(err, brk.Close(), st.Close())
	}

	p := &LocalPipeline{
		results: results{store: st},
		broker:  brk,
		stop:    stop,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		_ = agent.Consume(agentCtx, msgs)
	}()
	return p, nil
}

func (p *LocalPipeline) Submit(ctx context.Context, build contracts.BuildInfo) (string, error) {
	return submit(ctx, p.broker, p.store, build)
}

// Close stops the agent, then releases the broker and store.
func (p *LocalPipeline) Close() error {
	p.stop()
	<-p.done
	return errors.Join(p.broker.Close(), p.store.Close())
}
