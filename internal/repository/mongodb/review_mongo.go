package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wanderlust/internal/model"
	"wanderlust/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ReviewMongo implements repository.ReviewRepository on MongoDB. The listing keeps
// an ordered array of review ids which is maintained with $push and $pull.
type ReviewMongo struct {
	listings *mongo.Collection
	reviews  *mongo.Collection
	logger   *zap.Logger

	// beforeInsert runs between the $push and the review insert.
	beforeInsert func(ctx context.Context)
}

// NewReviewMongo creates a new MongoDB review repository.
func NewReviewMongo(db *mongo.Database, log *zap.Logger) *ReviewMongo {
	return &ReviewMongo{
		listings: db.Collection(listingCollectionName),
		reviews:  db.Collection(reviewCollectionName),
		logger:   log.Named("review_mongo"),
	}
}

var _ repository.ReviewRepository = (*ReviewMongo)(nil)

// Create appends the id to the listing first, so a missing listing leaves no
// stray review document behind. The listing is checked again after the insert;
// if it was deleted meanwhile the review is removed and ErrNotFound returned.
func (r *ReviewMongo) Create(ctx context.Context, rv *model.Review) (*model.Review, error) {
	id, err := objectID("review", rv.ID)
	if err != nil {
		return nil, err
	}
	listingID, err := primitive.ObjectIDFromHex(rv.ListingID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	author, err := objectID("author", rv.AuthorID)
	if err != nil {
		return nil, err
	}

	res, err := r.listings.UpdateOne(ctx, bson.M{"_id": listingID}, bson.M{"$push": bson.M{"reviews": id}})
	if err != nil {
		return nil, fmt.Errorf("db push review failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, repository.ErrNotFound
	}

	if r.beforeInsert != nil {
		r.beforeInsert(ctx)
	}

	doc := reviewDocument{
		ID:        id,
		Listing:   listingID,
		Author:    author,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.reviews.InsertOne(ctx, doc); err != nil {
		r.logger.Error("insert review failed, pulling id from listing", zap.String("review_id", rv.ID), zap.Error(err))
		if _, pullErr := r.listings.UpdateOne(ctx, bson.M{"_id": listingID}, bson.M{"$pull": bson.M{"reviews": id}}); pullErr != nil {
			r.logger.Error("pull dangling review id failed", zap.String("review_id", rv.ID), zap.Error(pullErr))
		}
		return nil, fmt.Errorf("db insert failed: %w", err)
	}

	n, err := r.listings.CountDocuments(ctx, bson.M{"_id": listingID})
	if err != nil {
		return nil, fmt.Errorf("db recheck listing failed: %w", err)
	}
	if n == 0 {
		r.logger.Warn("listing deleted during review create, removing review", zap.String("review_id", rv.ID), zap.String("listing_id", rv.ListingID))
		if _, err := r.reviews.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			r.logger.Error("remove orphaned review failed", zap.String("review_id", rv.ID), zap.Error(err))
		}
		return nil, repository.ErrNotFound
	}
	return doc.toModel(), nil
}

func (r *ReviewMongo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	var doc reviewDocument
	if err := r.reviews.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return doc.toModel(), nil
}

func (r *ReviewMongo) Delete(ctx context.Context, listingID, reviewID string) error {
	lid, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return repository.ErrNotFound
	}
	rid, err := primitive.ObjectIDFromHex(reviewID)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.reviews.DeleteOne(ctx, bson.M{"_id": rid, "listing": lid})
	if err != nil {
		return fmt.Errorf("db delete failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	if _, err := r.listings.UpdateOne(ctx, bson.M{"_id": lid}, bson.M{"$pull": bson.M{"reviews": rid}}); err != nil {
		return fmt.Errorf("db pull review failed: %w", err)
	}
	return nil
}
