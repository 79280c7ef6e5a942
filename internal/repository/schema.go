package repository

import (
	"context"
	"database/sql"
	"fmt"
)

func initSchema(db *sql.DB) error {
	if err := createPIDsTable(db); err != nil {
		return err
	}
	if err := createRecordsTable(db); err != nil {
		return err
	}
	if err := createDraftsTable(db); err != nil {
		return err
	}
	return createFilesTable(db)
}

// pids maps every external identifier to the internal record object. A
// record carries at least two entries, its "moodle" import key and its
// "lomid" repository id, both resolving to the same object_uuid.
func createPIDsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS pids (
		pid_type TEXT NOT NULL,
		pid_value TEXT NOT NULL,
		object_type TEXT NOT NULL,
		object_uuid TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (pid_type, pid_value)
	);
	CREATE INDEX IF NOT EXISTS idx_pids_object ON pids(object_uuid);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create pids table: %w", err)
	}

	return nil
}

func createRecordsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS records (
		uuid TEXT PRIMARY KEY,
		resource_type TEXT NOT NULL,
		document TEXT NOT NULL,
		published INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_resource_type ON records(resource_type);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}

	return nil
}

// drafts holds at most one pending revision per record. Publishing moves
// the draft document onto the record row and deletes the draft.
func createDraftsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS drafts (
		record_uuid TEXT PRIMARY KEY REFERENCES records(uuid) ON DELETE CASCADE,
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create drafts table: %w", err)
	}

	return nil
}

func createFilesTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS files (
		record_uuid TEXT NOT NULL REFERENCES records(uuid) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		content BLOB,
		size INTEGER NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL DEFAULT '',
		committed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (record_uuid, filename)
	);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create files table: %w", err)
	}

	return nil
}
