package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wanderlust/internal/model"
	"wanderlust/internal/repository"
	"wanderlust/internal/repository/cache"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewInput is the submitted review form.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewService manages reviews attached to listings.
type ReviewService interface {
	// Create adds a review by actor to the listing.
	Create(ctx context.Context, listingID string, actor *model.Actor, in ReviewInput) (*model.Review, error)

	// Delete removes the review. Only its author may delete it.
	Delete(ctx context.Context, listingID, reviewID string, actor *model.Actor) error
}

type reviewService struct {
	listings repository.ListingRepository
	reviews  repository.ReviewRepository
	cache    cache.ListingCache
	log      *zap.Logger
}

// NewReviewService constructs a new ReviewService. c and log may be nil.
func NewReviewService(listings repository.ListingRepository, reviews repository.ReviewRepository, c cache.ListingCache, log *zap.Logger) ReviewService {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &reviewService{listings: listings, reviews: reviews, cache: c, log: log}
}

func validateReview(in ReviewInput) error {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return &ValidationError{Field: "rating", Reason: fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating)}
	}
	if strings.TrimSpace(in.Comment) == "" {
		return &ValidationError{Field: "comment", Reason: "comment is required"}
	}
	return nil
}

func (s *reviewService) Create(ctx context.Context, listingID string, actor *model.Actor, in ReviewInput) (*model.Review, error) {
	if !model.IsValidID(listingID) {
		return nil, notFound(listingID)
	}
	if !authenticated(actor) {
		return nil, ErrUnauthenticated
	}
	if err := validateReview(in); err != nil {
		return nil, err
	}

	if _, err := s.listings.FindByID(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(listingID)
		}
		return nil, persistenceErr("load listing", err)
	}

	r, err := s.reviews.Create(ctx, &model.Review{
		ID:        model.NewID(),
		ListingID: listingID,
		AuthorID:  actor.ID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(listingID)
		}
		s.log.Error("create review failed", zap.String("listing_id", listingID), zap.Error(err))
		return nil, persistenceErr("create review", err)
	}

	s.log.Info("review created", zap.String("listing_id", listingID), zap.String("review_id", r.ID))
	if err := s.cache.Delete(context.WithoutCancel(ctx), listingID); err != nil {
		s.log.Warn("listing cache invalidation failed", zap.String("listing_id", listingID), zap.Error(err))
	}
	return r, nil
}

func (s *reviewService) Delete(ctx context.Context, listingID, reviewID string, actor *model.Actor) error {
	if !model.IsValidID(listingID) || !model.IsValidID(reviewID) {
		return fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
	}
	if !authenticated(actor) {
		return ErrUnauthenticated
	}

	r, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
		}
		return persistenceErr("load review", err)
	}
	if r.ListingID != listingID {
		return fmt.Errorf("%w: review %s on listing %s", ErrNotFound, reviewID, listingID)
	}
	if r.AuthorID != actor.ID {
		return fmt.Errorf("%w: review %s is not authored by %s", ErrForbidden, reviewID, actor.ID)
	}

	if err := s.reviews.Delete(ctx, listingID, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: review %s", ErrNotFound, reviewID)
		}
		s.log.Error("delete review failed", zap.String("review_id", reviewID), zap.Error(err))
		return persistenceErr("delete review", err)
	}

	s.log.Info("review deleted", zap.String("listing_id", listingID), zap.String("review_id", reviewID))
	if err := s.cache.Delete(context.WithoutCancel(ctx), listingID); err != nil {
		s.log.Warn("listing cache invalidation failed", zap.String("listing_id", listingID), zap.Error(err))
	}
	return nil
}
