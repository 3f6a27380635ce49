// Package store defines the interface for persistent data storage.
package store

import (
	"context"
	"fmt"

	"worklink/src/contracts"
)

// Store persists mapping requests and the links they produced.
type Store interface {
	// CreateRequest records a pending mapping request. Creating an existing request is a no-op.
	CreateRequest(ctx context.Context, requestID string, vcsRoot string) error

	// GetRequestStatus returns the status of a request
	GetRequestStatus(ctx context.Context, requestID string) (*contracts.RequestStatus, error)

	// UpdateRequestStatus updates the status of a request
	UpdateRequestStatus(ctx context.Context, status *contracts.RequestStatus) error

	// SaveLinks replaces the links stored for a request, keeping their order.
	SaveLinks(ctx context.Context, requestID string, links []contracts.WorkItemLink) error

	// GetLinks returns the links of a request in the order they were saved.
	GetLinks(ctx context.Context, requestID string) ([]contracts.WorkItemLink, error)

	// Close closes the store connection
	Close() error
}

// ErrNotFound is returned when a request does not exist.
type ErrNotFound struct {
	RequestID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("request not found: %s", e.RequestID)
}
