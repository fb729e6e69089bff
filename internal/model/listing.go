package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing represents a place offered on the platform.
// This is a pure domain model; each store maps it to its own record shape.
type Listing struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       float64          `json:"price"`
	Location    string           `json:"location"`
	Country     string           `json:"country"`
	Image       *ImageDescriptor `json:"image,omitempty"`
	Geometry    *GeoPoint        `json:"geometry,omitempty"`
	OwnerID     string           `json:"owner"`
	ReviewIDs   []string         `json:"reviews"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// Populated on single-listing reads only.
	Owner   *User    `json:"owner_user,omitempty"`
	Reviews []Review `json:"reviews_populated,omitempty"`
}

// ImageDescriptor points at an uploaded image. Filename is the storage identifier
// used to replace or delete the object later.
type ImageDescriptor struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Valid reports whether both the URL and the storage identifier are present.
func (d ImageDescriptor) Valid() bool {
	return d.URL != "" && d.Filename != ""
}

// Review is a rating left by a user on a listing.
type Review struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	AuthorID  string    `json:"author_id"`
	Author    *User     `json:"author,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a read-only projection of an identity record.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID string
}

// ListingFields is the create input. Nil pointers mean the field was not submitted.
type ListingFields struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Location    *string  `json:"location"`
	Country     *string  `json:"country"`
}

// Empty reports whether no field was submitted at all.
func (f *ListingFields) Empty() bool {
	return f == nil || (f.Title == nil && f.Description == nil && f.Price == nil && f.Location == nil && f.Country == nil)
}

// ListingPatch carries a merge-update. Only non-nil fields are written.
type ListingPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Location    *string
	Country     *string
	Image       *ImageDescriptor
	Geometry    *GeoPoint
}

// Empty reports whether the patch would not change anything.
func (p *ListingPatch) Empty() bool {
	return p == nil || (p.Title == nil && p.Description == nil && p.Price == nil && p.Location == nil &&
		p.Country == nil && p.Image == nil && p.Geometry == nil)
}

// NewID returns a fresh 24-character hex identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id is a well-formed identifier.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
