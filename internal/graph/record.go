package graph

import (
	"context"

	"github.com/oergraz/moodle-lom-go/internal/lom"
)

// Status indicates whether the underlying persisted record was just
// created or is being revised.
type Status string

// Record lifecycle states within one import run.
const (
	StatusNew  Status = "new"
	StatusEdit Status = "edit"
)

// Record wraps a persisted repository record during one import run. The
// Document is owned exclusively by the Record for the duration of the
// run; Previous holds the as-read snapshot so the orchestrator can skip
// no-op updates.
type Record struct {
	Key      Key
	Status   Status
	Document *lom.Document
	Previous *lom.Document

	// ReadOnly marks predecessor courses materialized during linking:
	// they are referenced, never re-converted.
	ReadOnly bool
}

// PID returns the record's canonical identifier. It is derived from the
// key so it can never drift from the record's identity.
func (r *Record) PID() string {
	return r.Key.MoodlePIDValue()
}

// Dirty reports whether the document changed relative to the persisted
// state it was read from. Newly created records are always dirty.
func (r *Record) Dirty() bool {
	if r.Previous == nil {
		return true
	}
	return !r.Document.Equal(r.Previous)
}

// PID is one entry of the persistent-identifier store.
type PID struct {
	Type       string
	Value      string
	ObjectType string
	ObjectUUID string
}

// PIDStore resolves external persistent identifiers.
// Get returns errors.ErrNotFound when no entry exists.
type PIDStore interface {
	Get(ctx context.Context, pidType, pidValue string) (*PID, error)
	GetByObject(ctx context.Context, pidType, objectType, objectUUID string) (*PID, error)
}

// RecordService is the slice of the repository record service the graph
// builder needs: creating a draft from a skeleton document and reading a
// persisted record.
type RecordService interface {
	Create(ctx context.Context, doc *lom.Document) error
	Read(ctx context.Context, id string) (*lom.Document, error)
}
