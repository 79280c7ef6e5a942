package repository

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
)

// FileInfo describes one file attached to a record.
type FileInfo struct {
	Filename  string
	Size      int64
	Checksum  string
	Committed bool
}

// ListFiles returns the files attached to the record, committed and
// pending alike, in filename order.
func (s *Service) ListFiles(ctx context.Context, id string) ([]FileInfo, error) {
	objectUUID, err := s.resolve(ctx, s.db.conn, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.conn.QueryContext(ctx,
		"SELECT filename, size, checksum, committed FROM files WHERE record_uuid = ? ORDER BY filename",
		objectUUID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var files []FileInfo
	for rows.Next() {
		var f FileInfo
		if err := rows.Scan(&f.Filename, &f.Size, &f.Checksum, &f.Committed); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate files of %s: %w", id, err)
	}
	return files, nil
}

// AttachFile stores the content of a local file under the record as an
// uncommitted file entry. Attaching the same filename again replaces the
// pending content; replacing a committed file is refused.
func (s *Service) AttachFile(ctx context.Context, id, filename, path string) error {
	objectUUID, err := s.resolve(ctx, s.db.conn, id)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := md5.Sum(content) //nolint:gosec
	checksum := "md5:" + hex.EncodeToString(sum[:])

	var committed bool
	err = s.db.conn.QueryRowContext(ctx,
		"SELECT committed FROM files WHERE record_uuid = ? AND filename = ?",
		objectUUID, filename,
	).Scan(&committed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to query file %s of %s: %w", filename, id, err)
	}
	if committed {
		return domerrors.NewConsistencyError(id, fmt.Sprintf("file %q is already committed", filename))
	}

	if _, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO files (record_uuid, filename, content, size, checksum, committed, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(record_uuid, filename) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			checksum = excluded.checksum`,
		objectUUID, filename, content, int64(len(content)), checksum, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to attach %s to %s: %w", filename, id, err)
	}

	s.log.WithRecord(id).
		WithField("filename", filename).
		Debugf("file attached (%d bytes)", len(content))
	return nil
}
