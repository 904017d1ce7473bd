package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_media",
		SQL: `CREATE TABLE IF NOT EXISTS media (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  url           TEXT        NOT NULL,
  bucket        TEXT        NOT NULL,
  storage_key   TEXT        NOT NULL UNIQUE,
  mime_type     TEXT        NOT NULL,
  original_name TEXT        NOT NULL,
  size_bytes    BIGINT      NOT NULL CHECK (size_bytes >= 0),
  owner_id      TEXT        NOT NULL DEFAULT '',
  thumbnail_id  UUID        NULL REFERENCES media (id) ON DELETE SET NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_media_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_media_owner_id ON media (owner_id);`,
	},
	{
		Name: "create_index_media_mime_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_media_mime_type ON media (mime_type);`,
	},
	{
		Name: "create_index_media_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_media_created_at ON media (created_at);`,
	},
}

// EnsureMigrated checks if the 'media' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Msg("checking schema")

	var exists bool
	query := "SELECT to_regclass('public.media') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().
			Err(err).
			Str("event", "db_migration_failed").
			Str("status", "error").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Msg("applying schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Err(err).
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("migration step applied")
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("schema migrated")

	return nil
}
