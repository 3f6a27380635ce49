// Package linkagent provides the agent that turns build information events into
// stored and published work-item links.
package linkagent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worklink/src/broker"
	"worklink/src/contracts"
	"worklink/src/logger"
	"worklink/src/store"
	"worklink/src/workitems"
)

// ConsumerGroup is the broker group the agent consumes build information with.
const ConsumerGroup = "worklink-linkagent"

// Mapper is the part of workitems.Mapper the agent depends on.
type Mapper interface {
	Map(ctx context.Context, build contracts.BuildInfo) (workitems.Result, error)
}

// Agent consumes build information events, maps their work items, stores the
// outcome, and publishes it.
type Agent struct {
	broker broker.Broker
	mapper Mapper
	store  store.Store
	logger logger.Logger
}

// NewAgent creates a new link agent.
func NewAgent(brk broker.Broker, mapper Mapper, st store.Store, log logger.Logger) *Agent {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Agent{
		broker: brk,
		mapper: mapper,
		store:  st,
		logger: log,
	}
}

// Run starts the agent's main loop.
// It subscribes to worklink.builds and processes incoming build information.
func (a *Agent) Run(ctx context.Context) error {
	msgChan, err := a.Subscribe(ctx)
	if err != nil {
		return err
	}
	return a.Consume(ctx, msgChan)
}

// Subscribe registers the agent's consumer group. Callers that must not miss
// messages published right after startup subscribe first and then Consume.
func (a *Agent) Subscribe(ctx context.Context) (<-chan broker.Message, error) {
	a.logger.Info("[LinkAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicBuildInformation, ConsumerGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicBuildInformation, err)
	}

	a.logger.Info("[LinkAgent] Listening for build information on '%s' topic...", contracts.TopicBuildInformation)
	return msgChan, nil
}

// Consume processes messages until the channel closes or ctx is done.
func (a *Agent) Consume(ctx context.Context, msgChan <-chan broker.Message) error {
	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[LinkAgent] Message channel closed, shutting down")
				return nil
			}

			var event contracts.BuildInformationEvent
			if err := msg.Decode(&event); err != nil {
				a.logger.Error("[LinkAgent] Dropping message: %v", err)
				continue
			}
			if _, err := a.Handle(ctx, event); err != nil {
				a.logger.Error("[LinkAgent] Error processing request %s: %v", event.RequestID, err)
			}

		case <-ctx.Done():
			a.logger.Info("[LinkAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

// Handle maps one build, records the result and publishes a LinksMappedEvent.
// The returned event is also what gets published.
func (a *Agent) Handle(ctx context.Context, event contracts.BuildInformationEvent) (*contracts.LinksMappedEvent, error) {
	if event.RequestID == "" {
		return nil, errors.New("build information event has no request ID")
	}

	a.logger.Info("[LinkAgent] Processing request %s (%d commit(s))", event.RequestID, len(event.Build.Commits))

	if err := a.store.CreateRequest(ctx, event.RequestID, event.Build.VcsRoot); err != nil {
		return nil, fmt.Errorf("failed to record request: %w", err)
	}

	status := &contracts.RequestStatus{
		RequestID:       event.RequestID,
		VcsRoot:         event.Build.VcsRoot,
		Status:          contracts.StatusProcessing,
		ReferencesTotal: len(workitems.ExtractReferences(event.Build)),
	}
	if err := a.store.UpdateRequestStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}

	result, err := a.mapper.Map(ctx, event.Build)
	if err != nil {
		status.Status = contracts.StatusFailed
		status.Message = err.Error()
		// Recorded even when ctx is already cancelled.
		if uerr := a.store.UpdateRequestStatus(context.WithoutCancel(ctx), status); uerr != nil {
			a.logger.Error("[LinkAgent] Failed to record failure for %s: %v", event.RequestID, uerr)
		}
		return nil, fmt.Errorf("mapping request %s: %w", event.RequestID, err)
	}

	links := result.Links
	if links == nil {
		links = []contracts.WorkItemLink{}
	}
	if err := a.store.SaveLinks(ctx, event.RequestID, links); err != nil {
		return nil, fmt.Errorf("failed to save links: %w", err)
	}

	status.Status = requestStatus(result.Status)
	status.LinksCount = len(links)
	status.Message = result.Message()
	if err := a.store.UpdateRequestStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}

	mapped := &contracts.LinksMappedEvent{
		RequestID: event.RequestID,
		Status:    string(result.Status),
		Message:   result.Message(),
		Links:     links,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := broker.PublishJSON(ctx, a.broker, contracts.TopicWorkItemLinks, event.RequestID, mapped); err != nil {
		return mapped, fmt.Errorf("failed to publish links: %w", err)
	}

	a.logger.Info("[LinkAgent] Completed request %s: %s", event.RequestID, result.Message())
	return mapped, nil
}

func requestStatus(s workitems.Status) string {
	switch s {
	case workitems.StatusSuccess:
		return contracts.StatusCompleted
	case workitems.StatusDisabled:
		return contracts.StatusDisabled
	default:
		return contracts.StatusFailed
	}
}
