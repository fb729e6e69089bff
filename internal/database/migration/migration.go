package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// Identifiers are 24-char hex strings shared with the document store driver.
var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id         CHAR(24)    PRIMARY KEY,
  username   TEXT        NOT NULL UNIQUE,
  email      TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_listings",
		SQL: `CREATE TABLE IF NOT EXISTS listings (
  id             CHAR(24)         PRIMARY KEY,
  title          TEXT             NOT NULL CHECK (btrim(title) <> ''),
  description    TEXT             NOT NULL DEFAULT '',
  price          DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (price >= 0),
  location       TEXT             NOT NULL DEFAULT '',
  country        TEXT             NOT NULL DEFAULT '',
  image_url      TEXT,
  image_filename TEXT,
  geo_lon        DOUBLE PRECISION CHECK (geo_lon BETWEEN -180 AND 180),
  geo_lat        DOUBLE PRECISION CHECK (geo_lat BETWEEN -90 AND 90),
  owner_id       CHAR(24)         NOT NULL,
  created_at     TIMESTAMPTZ      NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ      NOT NULL DEFAULT now(),
  CHECK ((image_url IS NULL) = (image_filename IS NULL)),
  CHECK ((geo_lon IS NULL) = (geo_lat IS NULL))
);`,
	},
	{
		Name: "create_table_reviews",
		SQL: `CREATE TABLE IF NOT EXISTS reviews (
  id         CHAR(24)    PRIMARY KEY,
  listing_id CHAR(24)    NOT NULL REFERENCES listings (id) ON DELETE CASCADE,
  author_id  CHAR(24)    NOT NULL,
  rating     SMALLINT    NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment    TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_listings_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_listings_owner_id ON listings (owner_id);`,
	},
	{
		Name: "create_index_listings_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings (created_at, id);`,
	},
	{
		Name: "create_index_reviews_listing_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reviews_listing_id ON reviews (listing_id, created_at);`,
	},
}

// EnsureMigrated checks if the 'listings' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("checking schema", zap.String("event", "db_migration_check"), zap.String("status", "starting"))

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.listings') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error("failed to check sentinel table",
			zap.String("event", "db_migration_failed"),
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration",
			zap.String("event", "db_migration_skip"),
			zap.String("status", "success"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("running migration", zap.String("event", "db_migration_start"), zap.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration step failed",
				zap.String("event", "db_migration_failed"),
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("migration step applied",
			zap.String("event", "db_migration_step"),
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("migration complete",
		zap.String("event", "db_migration_success"),
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
