package repository

import (
	"context"
	"errors"

	"wanderlust/internal/model"
)

// ErrNotFound is returned when the addressed listing, review or user does not exist.
var ErrNotFound = errors.New("record not found")

// ListingRepository defines data access for listings.
// No business logic here, strictly persistence operations.
type ListingRepository interface {
	// Insert stores a new listing. The caller assigns ID and OwnerID; the store sets timestamps.
	// Returns the stored listing (may include values set by the store).
	Insert(ctx context.Context, l *model.Listing) (*model.Listing, error)

	// FindByID returns the bare listing record.
	FindByID(ctx context.Context, id string) (*model.Listing, error)

	// FindPopulated returns the listing with its owner and reviews (with authors) resolved.
	FindPopulated(ctx context.Context, id string) (*model.Listing, error)

	// FindAll returns every listing in store order.
	FindAll(ctx context.Context) ([]model.Listing, error)

	// UpdateByID merges the non-nil patch fields into the stored listing and returns the result.
	// Owner and review ids are never written here.
	UpdateByID(ctx context.Context, id string, patch model.ListingPatch) (*model.Listing, error)

	// DeleteByID removes the listing together with every review that belongs to it.
	DeleteByID(ctx context.Context, id string) error
}

// ReviewRepository defines data access for reviews.
type ReviewRepository interface {
	// Create stores the review and appends its id to the listing's review list.
	Create(ctx context.Context, r *model.Review) (*model.Review, error)

	// FindByID returns a single review.
	FindByID(ctx context.Context, id string) (*model.Review, error)

	// Delete removes the review from the listing and from the store.
	// It returns ErrNotFound when the review does not belong to listingID.
	Delete(ctx context.Context, listingID, reviewID string) error
}
