package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// UnitOfWork scopes a group of repository mutations to one database
// transaction. Either every operation inside it takes effect or none
// does.
type UnitOfWork struct {
	tx   *sql.Tx
	done bool
}

// Begin starts a new unit of work.
func (s *Service) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Commit makes every operation of the unit of work permanent.
func (u *UnitOfWork) Commit() error {
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return nil
}

// Rollback discards the unit of work. Calling it after Commit is a
// no-op, so it is safe to defer.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback()
}
