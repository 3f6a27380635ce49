// Package deployments pushes deployment progress back to GitHub as commit statuses.
package deployments

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"worklink/src/broker"
	"worklink/src/contracts"
	"worklink/src/logger"
	"worklink/src/tracker"
	"worklink/src/workitems"
)

// StatusContext labels the commit statuses worklink creates.
const StatusContext = "continuous-deployment/worklink"

// ConsumerGroup is the broker group the observer consumes deployment events with.
const ConsumerGroup = "worklink-deployments"

// Settings is the configuration the observer reads on every event.
type Settings interface {
	IsEnabled(ctx context.Context) (bool, error)
	Credentials(ctx context.Context) (tracker.Credentials, error)
	ServerURI(ctx context.Context) (string, error)
	// PushUpdates applies to events that do not carry their own preference.
	PushUpdates() bool
}

// Observer turns deployment events into commit statuses.
type Observer struct {
	settings Settings
	factory  tracker.ClientFactory
	broker   broker.Broker
	logger   logger.Logger
}

func NewObserver(settings Settings, factory tracker.ClientFactory, brk broker.Broker, log logger.Logger) *Observer {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Observer{settings: settings, factory: factory, broker: brk, logger: log}
}

// StateFor maps a deployment transition to a commit status state.
func StateFor(eventType contracts.DeploymentEventType) tracker.CommitState {
	switch eventType {
	case contracts.DeploymentStarted, contracts.DeploymentResumed:
		return tracker.CommitStatePending
	case contracts.DeploymentFailed:
		return tracker.CommitStateFailure
	case contracts.DeploymentSucceeded:
		return tracker.CommitStateSuccess
	default:
		return tracker.CommitStateError
	}
}

// Handle pushes one commit status per change in event. Changes whose VCS root is
// not an owner/repo URL are skipped. Incomplete configuration is logged and
// ignored rather than returned.
func (o *Observer) Handle(ctx context.Context, event contracts.DeploymentEvent) error {
	enabled, err := o.settings.IsEnabled(ctx)
	if err != nil {
		return fmt.Errorf("read enabled setting: %w", err)
	}
	push := o.settings.PushUpdates()
	if event.PushUpdates != nil {
		push = *event.PushUpdates
	}
	if !enabled || !push {
		return nil
	}

	state := StateFor(event.EventType)
	o.logger.Info("[Deployments] Sending GitHub status update - %s", state)

	creds, err := o.settings.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if creds.Username == "" && creds.Secret == "" {
		o.logger.Warn("[Deployments] GitHub integration is enabled but settings are incomplete, ignoring deployment events")
		return nil
	}

	serverURI, err := o.settings.ServerURI(ctx)
	if err != nil {
		return fmt.Errorf("read server URI: %w", err)
	}
	if serverURI == "" {
		o.logger.Warn("[Deployments] To use GitHub status updates the server's external URL must be configured (WORKLINK_SERVER_URI)")
		return nil
	}

	client, err := o.factory.NewClient(ctx, creds)
	if err != nil {
		return fmt.Errorf("create GitHub client: %w", err)
	}

	status := tracker.CommitStatus{
		State:       state,
		Description: event.TaskDescription,
		Context:     StatusContext,
		TargetURL:   targetURL(serverURI, event),
	}

	var errs []error
	for _, change := range event.Changes {
		ownerRepo, err := workitems.ParseOwnerRepo(change.VcsRoot, "")
		if err != nil || change.CommitID == "" {
			o.logger.Debug("[Deployments] Skipping change %q at %s", change.CommitID, change.VcsRoot)
			continue
		}
		if err := client.CreateCommitStatus(ctx, ownerRepo.Owner, ownerRepo.Repo, change.CommitID, status); err != nil {
			o.logger.Error("[Deployments] Failed to set status on %s@%s: %v", ownerRepo, change.CommitID, err)
			errs = append(errs, fmt.Errorf("%s@%s: %w", ownerRepo, change.CommitID, err))
		}
	}
	return errors.Join(errs...)
}

// Run consumes worklink.deployments until ctx is done.
func (o *Observer) Run(ctx context.Context) error {
	o.logger.Info("[Deployments] Starting...")

	msgChan, err := o.broker.Subscribe(ctx, contracts.TopicDeployments, ConsumerGroup)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicDeployments, err)
	}

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				o.logger.Info("[Deployments] Message channel closed, shutting down")
				return nil
			}

			var event contracts.DeploymentEvent
			if err := msg.Decode(&event); err != nil {
				o.logger.Error("[Deployments] Dropping message: %v", err)
				continue
			}
			if err := o.Handle(ctx, event); err != nil {
				o.logger.Error("[Deployments] Deployment %s: %v", event.DeploymentID, err)
			}

		case <-ctx.Done():
			o.logger.Info("[Deployments] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func targetURL(serverURI string, event contracts.DeploymentEvent) string {
	return fmt.Sprintf("%s/app#/%s/projects/%s/releases/%s/deployments/%s",
		serverURI,
		url.PathEscape(event.SpaceID),
		url.PathEscape(event.ProjectSlug),
		url.PathEscape(event.ReleaseVersion),
		url.PathEscape(event.DeploymentID))
}
