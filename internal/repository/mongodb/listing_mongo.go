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
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ListingMongo implements repository.ListingRepository on MongoDB.
// Population is done with follow-up reads by id.
type ListingMongo struct {
	listings *mongo.Collection
	reviews  *mongo.Collection
	users    *mongo.Collection
	logger   *zap.Logger
}

// NewListingMongo creates the repository and ensures the review lookup index.
func NewListingMongo(ctx context.Context, db *mongo.Database, log *zap.Logger) *ListingMongo {
	r := &ListingMongo{
		listings: db.Collection(listingCollectionName),
		reviews:  db.Collection(reviewCollectionName),
		users:    db.Collection(userCollectionName),
		logger:   log.Named("listing_mongo"),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := r.reviews.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "listing", Value: 1}}}); err != nil {
		// Index may already exist or be managed outside the service.
		r.logger.Warn("failed to ensure reviews.listing index", zap.Error(err))
	}
	return r
}

var _ repository.ListingRepository = (*ListingMongo)(nil)

func (r *ListingMongo) Insert(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	now := time.Now().UTC()
	in := *l
	in.CreatedAt = now
	in.UpdatedAt = now
	in.ReviewIDs = nil

	doc, err := fromModelListing(&in)
	if err != nil {
		return nil, err
	}
	if _, err := r.listings.InsertOne(ctx, doc); err != nil {
		r.logger.Error("insert listing failed", zap.String("listing_id", l.ID), zap.Error(err))
		return nil, fmt.Errorf("db insert failed: %w", err)
	}
	return doc.toModel(), nil
}

func (r *ListingMongo) findDocument(ctx context.Context, id string) (*listingDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	var doc listingDocument
	if err := r.listings.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return &doc, nil
}

func (r *ListingMongo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	doc, err := r.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// FindPopulated resolves the owner and the reviews (in listing order) with their authors.
// Review ids whose documents are gone are skipped.
func (r *ListingMongo) FindPopulated(ctx context.Context, id string) (*model.Listing, error) {
	doc, err := r.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	l := doc.toModel()

	users, err := r.usersByID(ctx, []primitive.ObjectID{doc.Owner})
	if err != nil {
		return nil, err
	}
	l.Owner = users[doc.Owner]

	l.Reviews = make([]model.Review, 0, len(doc.Reviews))
	if len(doc.Reviews) == 0 {
		return l, nil
	}

	cursor, err := r.reviews.Find(ctx, bson.M{"_id": bson.M{"$in": doc.Reviews}})
	if err != nil {
		return nil, fmt.Errorf("db find reviews failed: %w", err)
	}
	var reviewDocs []reviewDocument
	if err := cursor.All(ctx, &reviewDocs); err != nil {
		return nil, fmt.Errorf("db decode reviews failed: %w", err)
	}

	byID := make(map[primitive.ObjectID]reviewDocument, len(reviewDocs))
	authorIDs := make([]primitive.ObjectID, 0, len(reviewDocs))
	for _, rd := range reviewDocs {
		byID[rd.ID] = rd
		authorIDs = append(authorIDs, rd.Author)
	}
	authors, err := r.usersByID(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, rid := range doc.Reviews {
		rd, ok := byID[rid]
		if !ok {
			continue
		}
		rv := rd.toModel()
		rv.Author = authors[rd.Author]
		l.Reviews = append(l.Reviews, *rv)
	}
	return l, nil
}

func (r *ListingMongo) usersByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*model.User, error) {
	out := make(map[primitive.ObjectID]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("db find users failed: %w", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db decode users failed: %w", err)
	}
	for i := range docs {
		out[docs[i].ID] = docs[i].toModel()
	}
	return out, nil
}

// FindAll returns every listing in natural (insertion) order.
func (r *ListingMongo) FindAll(ctx context.Context) ([]model.Listing, error) {
	cursor, err := r.listings.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("db find failed: %w", err)
	}
	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db decode failed: %w", err)
	}
	items := make([]model.Listing, 0, len(docs))
	for i := range docs {
		items = append(items, *docs[i].toModel())
	}
	return items, nil
}

func (r *ListingMongo) UpdateByID(ctx context.Context, id string, patch model.ListingPatch) (*model.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc listingDocument
	err = r.listings.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": patchToSet(patch, time.Now().UTC())}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		r.logger.Error("update listing failed", zap.String("listing_id", id), zap.Error(err))
		return nil, fmt.Errorf("db update failed: %w", err)
	}
	return doc.toModel(), nil
}

// DeleteByID deletes the listing, then its reviews, matched both by the id list
// and by their back-reference. Removing the listing first means a review insert
// racing this call either lands before the sweep or sees the listing gone.
func (r *ListingMongo) DeleteByID(ctx context.Context, id string) error {
	doc, err := r.findDocument(ctx, id)
	if err != nil {
		return err
	}

	del, err := r.listings.DeleteOne(ctx, bson.M{"_id": doc.ID})
	if err != nil {
		return fmt.Errorf("db delete failed: %w", err)
	}
	if del.DeletedCount == 0 {
		return repository.ErrNotFound
	}

	reviewIDs := doc.Reviews
	if reviewIDs == nil {
		reviewIDs = []primitive.ObjectID{}
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"_id": bson.M{"$in": reviewIDs}},
		bson.M{"listing": doc.ID},
	}}
	res, err := r.reviews.DeleteMany(ctx, filter)
	if err != nil {
		r.logger.Error("delete listing reviews failed, reviews orphaned", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("db delete reviews failed: %w", err)
	}
	r.logger.Debug("deleted listing reviews", zap.String("listing_id", id), zap.Int64("count", res.DeletedCount))
	return nil
}
