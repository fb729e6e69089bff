package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"wanderlust/internal/model"
	"wanderlust/internal/repository"
)

// ListingPostgres is a PostgreSQL implementation of repository.ListingRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ListingPostgres struct {
	db *sql.DB
}

// NewListingPostgres creates a new ListingPostgres repository.
func NewListingPostgres(db *sql.DB) *ListingPostgres {
	return &ListingPostgres{db: db}
}

var _ repository.ListingRepository = (*ListingPostgres)(nil)

// Review ids are derived from the reviews table so the listing row never holds a
// dangling reference.
const listingColumns = `
	l.id, l.title, l.description, l.price, l.location, l.country,
	l.image_url, l.image_filename, l.geo_lon, l.geo_lat, l.owner_id,
	COALESCE((SELECT string_agg(r.id, ',' ORDER BY r.created_at, r.id) FROM reviews r WHERE r.listing_id = l.id), ''),
	l.created_at, l.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*model.Listing, error) {
	var (
		l             model.Listing
		imageURL      sql.NullString
		imageFilename sql.NullString
		lon, lat      sql.NullFloat64
		reviewIDs     string
	)
	if err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Price,
		&l.Location,
		&l.Country,
		&imageURL,
		&imageFilename,
		&lon,
		&lat,
		&l.OwnerID,
		&reviewIDs,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if imageURL.Valid && imageFilename.Valid {
		l.Image = &model.ImageDescriptor{URL: imageURL.String, Filename: imageFilename.String}
	}
	if lon.Valid && lat.Valid {
		l.Geometry = &model.GeoPoint{Type: model.PointType, Coordinates: [2]float64{lon.Float64, lat.Float64}}
	}
	l.ReviewIDs = splitIDs(reviewIDs)
	return &l, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// Insert stores a new listing row and returns the stored record.
func (r *ListingPostgres) Insert(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	const q = `
		INSERT INTO listings (id, title, description, price, location, country,
			image_url, image_filename, geo_lon, geo_lat, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	imageURL, imageFilename := imageArgs(l.Image)
	lon, lat := geoArgs(l.Geometry)
	now := time.Now().UTC()

	out := *l
	out.ReviewIDs = []string{}
	if err := r.db.QueryRowContext(ctx, q,
		l.ID,
		l.Title,
		l.Description,
		l.Price,
		l.Location,
		l.Country,
		imageURL,
		imageFilename,
		lon,
		lat,
		l.OwnerID,
		now,
		now,
	).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single listing by its ID.
func (r *ListingPostgres) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings l WHERE l.id = $1`
	l, err := scanListing(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// FindPopulated fetches the listing and resolves its owner and reviews.
// A missing owner row leaves Owner nil.
func (r *ListingPostgres) FindPopulated(ctx context.Context, id string) (*model.Listing, error) {
	l, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	const qOwner = `SELECT id, username, email FROM users WHERE id = $1`
	var owner model.User
	err = r.db.QueryRowContext(ctx, qOwner, l.OwnerID).Scan(&owner.ID, &owner.Username, &owner.Email)
	switch {
	case err == nil:
		l.Owner = &owner
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	const qReviews = `
		SELECT r.id, r.listing_id, r.author_id, r.rating, r.comment, r.created_at, u.username, u.email
		FROM reviews r
		LEFT JOIN users u ON u.id = r.author_id
		WHERE r.listing_id = $1
		ORDER BY r.created_at, r.id
	`
	rows, err := r.db.QueryContext(ctx, qReviews, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]model.Review, 0)
	for rows.Next() {
		var (
			rv       model.Review
			username sql.NullString
			email    sql.NullString
		)
		if err := rows.Scan(&rv.ID, &rv.ListingID, &rv.AuthorID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &username, &email); err != nil {
			return nil, err
		}
		if username.Valid {
			rv.Author = &model.User{ID: rv.AuthorID, Username: username.String, Email: email.String}
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	l.Reviews = reviews
	return l, nil
}

// FindAll returns every listing ordered by creation time.
func (r *ListingPostgres) FindAll(ctx context.Context) ([]model.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings l ORDER BY l.created_at, l.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateByID writes the supplied patch fields and returns the updated listing.
// Columns are set in a fixed order so the generated statement is stable.
func (r *ListingPostgres) UpdateByID(ctx context.Context, id string, patch model.ListingPatch) (*model.Listing, error) {
	sets := make([]string, 0, 10)
	args := make([]any, 0, 11)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Country != nil {
		add("country", *patch.Country)
	}
	if patch.Image != nil {
		add("image_url", patch.Image.URL)
		add("image_filename", patch.Image.Filename)
	}
	if patch.Geometry != nil {
		add("geo_lon", patch.Geometry.Lon())
		add("geo_lat", patch.Geometry.Lat())
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE listings SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// DeleteByID removes a listing. Reviews go with it through ON DELETE CASCADE.
func (r *ListingPostgres) DeleteByID(ctx context.Context, id string) error {
	const q = `DELETE FROM listings WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func imageArgs(d *model.ImageDescriptor) (sql.NullString, sql.NullString) {
	if d == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: d.URL, Valid: true}, sql.NullString{String: d.Filename, Valid: true}
}

func geoArgs(p *model.GeoPoint) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lon(), Valid: true}, sql.NullFloat64{Float64: p.Lat(), Valid: true}
}
