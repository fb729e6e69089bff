package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wanderlust/internal/model"
	"wanderlust/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

// ReviewPostgres is a PostgreSQL implementation of repository.ReviewRepository.
// A listing's review list is the set of rows pointing at it, so Create and Delete
// only touch the reviews table.
type ReviewPostgres struct {
	db *sql.DB
}

// NewReviewPostgres creates a new ReviewPostgres repository.
func NewReviewPostgres(db *sql.DB) *ReviewPostgres {
	return &ReviewPostgres{db: db}
}

var _ repository.ReviewRepository = (*ReviewPostgres)(nil)

// Create inserts a review row. A missing listing surfaces as repository.ErrNotFound.
func (r *ReviewPostgres) Create(ctx context.Context, rv *model.Review) (*model.Review, error) {
	const q = `
		INSERT INTO reviews (id, listing_id, author_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, listing_id, author_id, rating, comment, created_at
	`
	var out model.Review
	err := r.db.QueryRowContext(ctx, q,
		rv.ID,
		rv.ListingID,
		rv.AuthorID,
		rv.Rating,
		rv.Comment,
		time.Now().UTC(),
	).Scan(&out.ID, &out.ListingID, &out.AuthorID, &out.Rating, &out.Comment, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single review by its ID.
func (r *ReviewPostgres) FindByID(ctx context.Context, id string) (*model.Review, error) {
	const q = `
		SELECT id, listing_id, author_id, rating, comment, created_at
		FROM reviews
		WHERE id = $1
	`
	var rv model.Review
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rv.ID,
		&rv.ListingID,
		&rv.AuthorID,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

// Delete removes the review when it belongs to listingID.
func (r *ReviewPostgres) Delete(ctx context.Context, listingID, reviewID string) error {
	const q = `DELETE FROM reviews WHERE id = $1 AND listing_id = $2`
	res, err := r.db.ExecContext(ctx, q, reviewID, listingID)
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
