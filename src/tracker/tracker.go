// Package tracker defines the contract between the work-item mapper and a remote issue tracker.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Issue is the subset of issue metadata the mapper needs.
type Issue struct {
	Number       int
	Title        string
	CommentCount int
	HTMLURL      string
}

// Comment is a single issue comment.
type Comment struct {
	Body string
}

// Credentials are handed to a ClientFactory unchanged.
// A username with a secret means basic auth; a secret alone is a token.
type Credentials struct {
	Username string
	Secret   string
}

// CommitState is the state of a commit status pushed back to the tracker.
type CommitState string

const (
	CommitStatePending CommitState = "pending"
	CommitStateSuccess CommitState = "success"
	CommitStateFailure CommitState = "failure"
	CommitStateError   CommitState = "error"
)

// CommitStatus describes a deployment status attached to a commit.
type CommitStatus struct {
	State       CommitState
	TargetURL   string
	Description string
	Context     string
}

// IssueClient looks up issues and their comments.
// Implementations must be safe for concurrent use.
type IssueClient interface {
	// GetIssue fetches issue metadata.
	GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error)

	// GetIssueComments fetches every comment on an issue, oldest first.
	GetIssueComments(ctx context.Context, owner, repo string, number int) ([]Comment, error)
}

// StatusClient pushes commit statuses.
type StatusClient interface {
	CreateCommitStatus(ctx context.Context, owner, repo, ref string, status CommitStatus) error
}

// Client is everything a tracker integration offers.
type Client interface {
	IssueClient
	StatusClient
}

// ClientFactory builds a Client from credentials. Transport construction stays
// behind this interface so callers never build HTTP clients themselves.
type ClientFactory interface {
	NewClient(ctx context.Context, creds Credentials) (Client, error)
}

// ClientFactoryFunc adapts a function to ClientFactory.
type ClientFactoryFunc func(ctx context.Context, creds Credentials) (Client, error)

func (f ClientFactoryFunc) NewClient(ctx context.Context, creds Credentials) (Client, error) {
	return f(ctx, creds)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ClientFactory)
)

// RegisterFactory makes a tracker integration available by name.
// Integrations call it from init.
func RegisterFactory(name string, factory ClientFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// GetFactory returns the factory registered under name.
func GetFactory(name string) (ClientFactory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrackerUnknown, name)
	}
	return factory, nil
}

// Registered lists registered tracker names in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
