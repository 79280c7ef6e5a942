package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
	"github.com/oergraz/moodle-lom-go/internal/graph"
	"github.com/oergraz/moodle-lom-go/internal/logger"
	"github.com/oergraz/moodle-lom-go/internal/lom"
)

const (
	pidTypeMoodle = "moodle"
	pidTypeLOM    = "lomid"

	objectTypeRecord = "rec"
)

// Service exposes the record, draft, file and PID operations of the
// repository. It implements graph.PIDStore and graph.RecordService.
type Service struct {
	db  *DB
	log *logger.Logger
}

// NewService creates a Service over an open database.
func NewService(db *DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log.WithModule("repository")}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get resolves a persistent identifier, returning errors.ErrNotFound
// when no entry exists.
func (s *Service) Get(ctx context.Context, pidType, pidValue string) (*graph.PID, error) {
	return s.getPID(ctx, s.db.conn, pidType, pidValue)
}

func (s *Service) getPID(ctx context.Context, q querier, pidType, pidValue string) (*graph.PID, error) {
	pid := &graph.PID{Type: pidType, Value: pidValue}
	err := q.QueryRowContext(ctx,
		"SELECT object_type, object_uuid FROM pids WHERE pid_type = ? AND pid_value = ?",
		pidType, pidValue,
	).Scan(&pid.ObjectType, &pid.ObjectUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pid %s:%s: %w", pidType, pidValue, err)
	}
	return pid, nil
}

// GetByObject resolves the identifier of the given type attached to an
// object, returning errors.ErrNotFound when no entry exists.
func (s *Service) GetByObject(ctx context.Context, pidType, objectType, objectUUID string) (*graph.PID, error) {
	pid := &graph.PID{Type: pidType, ObjectType: objectType, ObjectUUID: objectUUID}
	err := s.db.conn.QueryRowContext(ctx,
		"SELECT pid_value FROM pids WHERE pid_type = ? AND object_type = ? AND object_uuid = ?",
		pidType, objectType, objectUUID,
	).Scan(&pid.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pid for object %s: %w", objectUUID, err)
	}
	return pid, nil
}

// Create registers a new record from a skeleton document: a record row,
// an initial draft carrying the same document, and the "moodle" plus
// "lomid" identifiers pointing at it. The generated lomid is written
// back into the document before persisting.
func (s *Service) Create(ctx context.Context, doc *lom.Document) error {
	moodlePID, ok := doc.PIDs[pidTypeMoodle]
	if !ok || moodlePID.Identifier == "" {
		return domerrors.NewValidationError("pids.moodle", "missing on new record document")
	}

	objectUUID := uuid.NewString()
	lomID := uuid.NewString()
	doc.PIDs[pidTypeLOM] = lom.PID{Provider: "lom", Identifier: lomID}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO records (uuid, resource_type, document, published, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)",
		objectUUID, doc.ResourceType, string(payload), now, now,
	); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO drafts (record_uuid, document, created_at, updated_at) VALUES (?, ?, ?, ?)",
		objectUUID, string(payload), now, now,
	); err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	for pidType, pidValue := range map[string]string{
		pidTypeMoodle: moodlePID.Identifier,
		pidTypeLOM:    lomID,
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO pids (pid_type, pid_value, object_type, object_uuid, created_at) VALUES (?, ?, ?, ?, ?)",
			pidType, pidValue, objectTypeRecord, objectUUID, now,
		); err != nil {
			return fmt.Errorf("failed to register %s pid: %w", pidType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record creation: %w", err)
	}

	s.log.WithRecord(moodlePID.Identifier).
		Debugf("record created as %s", objectUUID)
	return nil
}

// Read returns the current document of the record identified by its
// moodle pid value: the pending draft when one exists, the published
// document otherwise.
func (s *Service) Read(ctx context.Context, id string) (*lom.Document, error) {
	objectUUID, err := s.resolve(ctx, s.db.conn, id)
	if err != nil {
		return nil, err
	}

	var payload string
	err = s.db.conn.QueryRowContext(ctx,
		"SELECT document FROM drafts WHERE record_uuid = ?", objectUUID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.conn.QueryRowContext(ctx,
			"SELECT document FROM records WHERE uuid = ?", objectUUID,
		).Scan(&payload)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	doc := &lom.Document{}
	if err := json.Unmarshal([]byte(payload), doc); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return doc, nil
}

// Edit ensures a pending draft exists for the record, seeding it from
// the published document when necessary.
func (s *Service) Edit(ctx context.Context, id string) error {
	objectUUID, err := s.resolve(ctx, s.db.conn, id)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO drafts (record_uuid, document, created_at, updated_at)
		SELECT uuid, document, ?, ? FROM records WHERE uuid = ?
		ON CONFLICT(record_uuid) DO NOTHING`,
		now, now, objectUUID,
	)
	if err != nil {
		return fmt.Errorf("failed to create draft for %s: %w", id, err)
	}
	return nil
}

// UpdateDraft replaces the pending draft document of the record.
func (s *Service) UpdateDraft(ctx context.Context, id string, doc *lom.Document) error {
	objectUUID, err := s.resolve(ctx, s.db.conn, id)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	result, err := s.db.conn.ExecContext(ctx,
		"UPDATE drafts SET document = ?, updated_at = ? WHERE record_uuid = ?",
		string(payload), time.Now().Unix(), objectUUID,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft for %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domerrors.ErrNoDraft
	}
	return nil
}

// HasDraft reports whether the record has a pending draft.
func (s *Service) HasDraft(ctx context.Context, id string) (bool, error) {
	objectUUID, err := s.resolve(ctx, s.db.conn, id)
	if err != nil {
		return false, err
	}

	var count int
	if err := s.db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM drafts WHERE record_uuid = ?", objectUUID,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query draft for %s: %w", id, err)
	}
	return count > 0, nil
}

// Publish moves the record's pending draft onto the published document
// and marks its files committed, inside the given unit of work. Returns
// errors.ErrNoDraft when no draft is pending.
func (s *Service) Publish(ctx context.Context, id string, uow *UnitOfWork) error {
	objectUUID, err := s.resolve(ctx, uow.tx, id)
	if err != nil {
		return err
	}

	var payload string
	err = uow.tx.QueryRowContext(ctx,
		"SELECT document FROM drafts WHERE record_uuid = ?", objectUUID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domerrors.ErrNoDraft
	}
	if err != nil {
		return fmt.Errorf("failed to read draft for %s: %w", id, err)
	}

	now := time.Now().Unix()
	if _, err := uow.tx.ExecContext(ctx,
		"UPDATE records SET document = ?, published = 1, updated_at = ? WHERE uuid = ?",
		payload, now, objectUUID,
	); err != nil {
		return fmt.Errorf("failed to publish record %s: %w", id, err)
	}
	if _, err := uow.tx.ExecContext(ctx,
		"UPDATE files SET committed = 1 WHERE record_uuid = ?", objectUUID,
	); err != nil {
		return fmt.Errorf("failed to commit files of %s: %w", id, err)
	}
	if _, err := uow.tx.ExecContext(ctx,
		"DELETE FROM drafts WHERE record_uuid = ?", objectUUID,
	); err != nil {
		return fmt.Errorf("failed to drop draft of %s: %w", id, err)
	}

	s.log.WithRecord(id).Debugf("record published")
	return nil
}

// resolve maps a moodle pid value to the record's object uuid.
func (s *Service) resolve(ctx context.Context, q querier, id string) (string, error) {
	pid, err := s.getPID(ctx, q, pidTypeMoodle, id)
	if err != nil {
		return "", err
	}
	return pid.ObjectUUID, nil
}
