// Package migration bootstraps the documents schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
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
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_id         TEXT        NOT NULL,
  local_id         TEXT        NOT NULL,
  file_name        TEXT        NOT NULL,
  file_type        TEXT        NOT NULL,
  file_size        BIGINT      NOT NULL CHECK (file_size >= 0),
  file_url         TEXT        NOT NULL,
  metadata         JSONB       NOT NULL DEFAULT '{}'::jsonb,
  upload_timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT documents_owner_local_key UNIQUE (owner_id, local_id)
);`,
	},
	{
		Name: "create_index_documents_owner_listing",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_listing ON documents (owner_id, upload_timestamp DESC, id);`,
	},
	{
		Name: "create_function_documents_immutable",
		SQL: `CREATE OR REPLACE FUNCTION documents_immutable() RETURNS trigger AS $$
BEGIN
  IF NEW.owner_id IS DISTINCT FROM OLD.owner_id THEN
    RAISE EXCEPTION 'documents.owner_id is immutable';
  END IF;
  IF NEW.upload_timestamp IS DISTINCT FROM OLD.upload_timestamp THEN
    RAISE EXCEPTION 'documents.upload_timestamp is immutable';
  END IF;
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;`,
	},
	{
		Name: "create_trigger_documents_immutable",
		SQL: `DROP TRIGGER IF EXISTS trg_documents_immutable ON documents;
CREATE TRIGGER trg_documents_immutable BEFORE UPDATE ON documents
  FOR EACH ROW EXECUTE FUNCTION documents_immutable();`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "status", "starting")

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.documents') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"reason", "schema already exists",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress", "steps", len(steps))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
