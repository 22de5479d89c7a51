package repository

import (
	"context"

	"ridebid/internal/domain"
)

// UserScope selects which side of a request a per-user listing matches.
type UserScope struct {
	UserID   string
	IsDriver bool
	// Filter is "all", "running" or "history".
	Filter string
}

// ListFilter narrows an operator listing.
type ListFilter struct {
	// Status filters to a single status when non-empty.
	Status domain.RequestStatus
}

// RequestRepository defines the persistence operations for ride requests.
type RequestRepository interface {
	// Create persists a new request.
	Create(ctx context.Context, req *domain.RideRequest) error

	// GetByID retrieves a request by ID.
	GetByID(ctx context.Context, id string) (*domain.RideRequest, error)

	// GetByIDs retrieves the requests whose IDs are in the given set,
	// restricted to the given status.
	GetByIDs(ctx context.Context, ids []string, status domain.RequestStatus) ([]*domain.RideRequest, error)

	// List returns one page of requests, newest first, plus the total
	// count matching the filter.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*domain.RideRequest, int, error)

	// ListByUser returns the requests visible to one user.
	ListByUser(ctx context.Context, scope UserScope) ([]*domain.RideRequest, error)

	// Update writes the mutable fields of a request. The write only
	// succeeds when the stored version equals req.Version; on success the
	// stored version is incremented and req.Version is updated to match.
	// Returns ErrVersionConflict on a stale write.
	Update(ctx context.Context, req *domain.RideRequest) error
}
