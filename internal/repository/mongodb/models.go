package mongodb

import (
	"fmt"
	"time"

	"wanderlust/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	listingCollectionName = "listings"
	reviewCollectionName  = "reviews"
	userCollectionName    = "users"
)

type imageDocument struct {
	URL      string `bson:"url"`
	Filename string `bson:"filename"`
}

type geoDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type listingDocument struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Price       float64              `bson:"price"`
	Location    string               `bson:"location"`
	Country     string               `bson:"country"`
	Image       *imageDocument       `bson:"image,omitempty"`
	Geometry    *geoDocument         `bson:"geometry,omitempty"`
	Owner       primitive.ObjectID   `bson:"owner"`
	Reviews     []primitive.ObjectID `bson:"reviews"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Listing   primitive.ObjectID `bson:"listing"`
	Author    primitive.ObjectID `bson:"author"`
	Rating    int                `bson:"rating"`
	Comment   string             `bson:"comment"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	Email    string             `bson:"email"`
}

func objectID(field, hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s id %q: %w", field, hex, err)
	}
	return oid, nil
}

func fromModelListing(l *model.Listing) (*listingDocument, error) {
	id, err := objectID("listing", l.ID)
	if err != nil {
		return nil, err
	}
	owner, err := objectID("owner", l.OwnerID)
	if err != nil {
		return nil, err
	}
	doc := &listingDocument{
		ID:          id,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		Owner:       owner,
		Reviews:     make([]primitive.ObjectID, 0, len(l.ReviewIDs)),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.Image != nil {
		doc.Image = &imageDocument{URL: l.Image.URL, Filename: l.Image.Filename}
	}
	if l.Geometry != nil {
		doc.Geometry = fromModelGeo(l.Geometry)
	}
	for _, rid := range l.ReviewIDs {
		oid, err := objectID("review", rid)
		if err != nil {
			return nil, err
		}
		doc.Reviews = append(doc.Reviews, oid)
	}
	return doc, nil
}

func fromModelGeo(p *model.GeoPoint) *geoDocument {
	return &geoDocument{Type: model.PointType, Coordinates: []float64{p.Lon(), p.Lat()}}
}

func (d *listingDocument) toModel() *model.Listing {
	l := &model.Listing{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Location:    d.Location,
		Country:     d.Country,
		OwnerID:     d.Owner.Hex(),
		ReviewIDs:   make([]string, 0, len(d.Reviews)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Image != nil {
		l.Image = &model.ImageDescriptor{URL: d.Image.URL, Filename: d.Image.Filename}
	}
	// Stored geometry that is not a two-component point is dropped on read.
	if d.Geometry != nil && d.Geometry.Type == model.PointType && len(d.Geometry.Coordinates) == 2 {
		l.Geometry = &model.GeoPoint{Type: model.PointType, Coordinates: [2]float64{d.Geometry.Coordinates[0], d.Geometry.Coordinates[1]}}
	}
	for _, rid := range d.Reviews {
		l.ReviewIDs = append(l.ReviewIDs, rid.Hex())
	}
	return l
}

func (d *reviewDocument) toModel() *model.Review {
	return &model.Review{
		ID:        d.ID.Hex(),
		ListingID: d.Listing.Hex(),
		AuthorID:  d.Author.Hex(),
		Rating:    d.Rating,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt,
	}
}

func (d *userDocument) toModel() *model.User {
	return &model.User{ID: d.ID.Hex(), Username: d.Username, Email: d.Email}
}

// patchToSet builds the $set document for a merge update. Owner and reviews are
// never part of it.
func patchToSet(patch model.ListingPatch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Country != nil {
		set["country"] = *patch.Country
	}
	if patch.Image != nil {
		set["image"] = imageDocument{URL: patch.Image.URL, Filename: patch.Image.Filename}
	}
	if patch.Geometry != nil {
		set["geometry"] = fromModelGeo(patch.Geometry)
	}
	return set
}
