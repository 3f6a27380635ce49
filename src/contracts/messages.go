// Package contracts defines the data structures shared between the mapper, the agents
// and the broker topics.
package contracts

// Commit is a single commit recorded against a build.
type Commit struct {
	ID      string `json:"id"`
	Comment string `json:"comment"`
}

// BuildInfo is the build information supplied by the build server.
// An empty VcsRoot means the build has no VCS root.
type BuildInfo struct {
	VcsRoot string   `json:"vcs_root"`
	VcsType string   `json:"vcs_type,omitempty"`
	Commits []Commit `json:"commits"`
}

// WorkItemLink is a resolved reference to an issue in the tracker.
// Links are compared structurally; two links with equal fields are duplicates.
type WorkItemLink struct {
	ID          string `db:"id" json:"id"`
	Description string `db:"description" json:"description"`
	LinkURL     string `db:"link_url" json:"link_url"`
	Source      string `db:"source" json:"source"`
}

// BuildInformationEvent asks for the work items of a build to be mapped.
// Published to: worklink.builds
// Key: {request_id}
type BuildInformationEvent struct {
	RequestID string    `json:"request_id"`
	Build     BuildInfo `json:"build"`
	Timestamp string    `json:"timestamp"`
}

// LinksMappedEvent carries the outcome of a mapping request.
// Published to: worklink.links
// Key: {request_id}
type LinksMappedEvent struct {
	RequestID string         `json:"request_id"`
	Status    string         `json:"status"` // success, failed, disabled
	Message   string         `json:"message,omitempty"`
	Links     []WorkItemLink `json:"links"`
	Timestamp string         `json:"timestamp"`
}

// DeploymentEventType identifies a deployment lifecycle transition.
type DeploymentEventType string

const (
	DeploymentStarted   DeploymentEventType = "deployment_started"
	DeploymentResumed   DeploymentEventType = "deployment_resumed"
	DeploymentFailed    DeploymentEventType = "deployment_failed"
	DeploymentSucceeded DeploymentEventType = "deployment_succeeded"
)

// DeploymentChange is one commit shipped by a deployment.
type DeploymentChange struct {
	VcsRoot  string `json:"vcs_root"`
	CommitID string `json:"commit_id"`
}

// DeploymentEvent reports a deployment transition so commit statuses can be pushed back.
// Published to: worklink.deployments
// Key: {deployment_id}
type DeploymentEvent struct {
	EventType       DeploymentEventType `json:"event_type"`
	DeploymentID    string              `json:"deployment_id"`
	SpaceID         string              `json:"space_id"`
	ProjectSlug     string              `json:"project_slug"`
	ReleaseVersion  string              `json:"release_version"`
	TaskDescription string              `json:"task_description"`
	PushUpdates     *bool               `json:"push_updates,omitempty"` // nil uses the configured default
	Changes         []DeploymentChange  `json:"changes"`
}

// RequestStatus represents the status of a mapping request.
type RequestStatus struct {
	RequestID       string `db:"request_id" json:"request_id"`
	VcsRoot         string `db:"vcs_root" json:"vcs_root"`
	Status          string `db:"status" json:"status"` // pending, processing, completed, failed, disabled
	ReferencesTotal int    `db:"references_total" json:"references_total"`
	LinksCount      int    `db:"links_count" json:"links_count"`
	Message         string `db:"message" json:"message,omitempty"`
}

// Request status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusDisabled   = "disabled"
)

// Topic names used by the agents.
const (
	// TopicBuildInformation carries build information awaiting work-item mapping.
	TopicBuildInformation = "worklink.builds"

	// TopicWorkItemLinks carries mapped work-item links.
	TopicWorkItemLinks = "worklink.links"

	// TopicDeployments carries deployment transitions for commit status push-back.
	TopicDeployments = "worklink.deployments"
)
