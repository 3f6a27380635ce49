package store

import (
	"context"
	"sync"

	"worklink/src/contracts"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
// Used for local mode and the MCP server.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*contracts.RequestStatus
	links    map[string][]contracts.WorkItemLink // request_id -> links
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests: make(map[string]*contracts.RequestStatus),
		links:    make(map[string][]contracts.WorkItemLink),
	}
}

func (s *InMemoryStore) CreateRequest(ctx context.Context, requestID string, vcsRoot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID]; ok {
		return nil
	}
	s.requests[requestID] = &contracts.RequestStatus{
		RequestID: requestID,
		VcsRoot:   vcsRoot,
		Status:    contracts.StatusPending,
	}
	return nil
}

func (s *InMemoryStore) GetRequestStatus(ctx context.Context, requestID string) (*contracts.RequestStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.requests[requestID]
	if !ok {
		return nil, ErrNotFound{RequestID: requestID}
	}

	// Return a copy to prevent external modification
	statusCopy := *status
	return &statusCopy, nil
}

func (s *InMemoryStore) UpdateRequestStatus(ctx context.Context, status *contracts.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.requests[status.RequestID]
	if !ok {
		return ErrNotFound{RequestID: status.RequestID}
	}

	updated := *status
	if updated.VcsRoot == "" {
		updated.VcsRoot = existing.VcsRoot
	}
	s.requests[status.RequestID] = &updated
	return nil
}

func (s *InMemoryStore) SaveLinks(ctx context.Context, requestID string, links []contracts.WorkItemLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID]; !ok {
		return ErrNotFound{RequestID: requestID}
	}
	s.links[requestID] = append([]contracts.WorkItemLink(nil), links...)
	return nil
}

func (s *InMemoryStore) GetLinks(ctx context.Context, requestID string) ([]contracts.WorkItemLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.requests[requestID]; !ok {
		return nil, ErrNotFound{RequestID: requestID}
	}
	links := make([]contracts.WorkItemLink, len(s.links[requestID]))
	copy(links, s.links[requestID])
	return links, nil
}

// Close is a no-op for in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
