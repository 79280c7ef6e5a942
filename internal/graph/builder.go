package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/oergraz/moodle-lom-go/internal/convert"
	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
	"github.com/oergraz/moodle-lom-go/internal/filecache"
	"github.com/oergraz/moodle-lom-go/internal/lom"
	"github.com/oergraz/moodle-lom-go/internal/logger"
	"github.com/oergraz/moodle-lom-go/internal/moodle"
)

// PID type under which import keys are registered with the store.
const moodlePIDType = "moodle"

// Entry pairs a file or link element with the Record it produced.
type Entry struct {
	Element moodle.Element
	Record  *Record
}

// Builder constructs the record graph of one import run. It is the
// single writer of the run-scoped Key→Record table: a Key looked up more
// than once always resolves to the same in-memory Record, and the
// external store is queried at most once per Key.
type Builder struct {
	pids    PIDStore
	records RecordService
	cache   *filecache.Cache
	log     *logger.Logger

	table   map[string]*Record // by tableKey
	order   []*Record
	entries []Entry
	sources map[string]string // course tableKey → declared predecessor id
}

// tableKey is the run-table identity of a Key: resource type plus
// canonical pid value. File keys carry their URL as provenance, so two
// URLs with equal content share one table entry here.
func tableKey(key Key) string {
	return string(key.ResourceType()) + ":" + key.MoodlePIDValue()
}

// NewBuilder creates a builder over the given service bundle.
func NewBuilder(pids PIDStore, records RecordService, cache *filecache.Cache, log *logger.Logger) *Builder {
	return &Builder{
		pids:    pids,
		records: records,
		cache:   cache,
		log:     log.WithModule("graph"),
		table:   make(map[string]*Record),
		sources: make(map[string]string),
	}
}

// Records returns every record of the run in materialization order.
func (b *Builder) Records() []*Record {
	return b.order
}

// Entries returns the file/link elements paired with their records.
func (b *Builder) Entries() []Entry {
	return b.entries
}

// Build materializes one Record per distinct Key referenced by the
// elements and runs the metadata conversion for each. Pseudo-courses
// never produce keys.
func (b *Builder) Build(ctx context.Context, elements []moodle.Element) error {
	for _, element := range elements {
		if err := b.buildElement(ctx, element); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildElement(ctx context.Context, element moodle.Element) error {
	var key Key
	if element.IsLink() {
		key = NewLinkKey(element.URL())
	} else {
		fileKey, err := FileKeyFromElement(element, b.cache)
		if err != nil {
			return err
		}
		key = fileKey
	}

	record, err := b.fetchElseCreate(ctx, key)
	if err != nil {
		return err
	}
	if err := convert.File(record.Document, element, b.cache); err != nil {
		return err
	}
	b.entries = append(b.entries, Entry{Element: element, Record: record})

	courses, err := element.Courses()
	if err != nil {
		return err
	}
	for _, course := range courses {
		if course.IsPseudo() {
			continue
		}

		unitKey, err := UnitKeyFromElement(element, course)
		if err != nil {
			return err
		}
		if _, ok := b.table[tableKey(unitKey)]; !ok {
			unitRecord, err := b.fetchElseCreate(ctx, unitKey)
			if err != nil {
				return err
			}
			if err := convert.Unit(unitRecord.Document, element, course); err != nil {
				return err
			}
		}

		courseKey := CourseKeyFromCourse(course)
		if _, ok := b.table[tableKey(courseKey)]; !ok {
			courseRecord, err := b.fetchElseCreate(ctx, courseKey)
			if err != nil {
				return err
			}
			if err := convert.Course(courseRecord.Document, element, course); err != nil {
				return err
			}
			b.sources[tableKey(courseKey)] = course.SourceID()
		}
	}
	return nil
}

// Link derives the bidirectional relations between the run's records:
// file↔unit and unit↔course containment plus course↔predecessor
// continuation. It must run after Build so every record of the run
// exists.
func (b *Builder) Link(ctx context.Context) error {
	for _, entry := range b.entries {
		courses, err := entry.Element.Courses()
		if err != nil {
			return err
		}
		for _, course := range courses {
			if course.IsPseudo() {
				continue
			}

			unitKey, err := UnitKeyFromElement(entry.Element, course)
			if err != nil {
				return err
			}
			unitRecord, ok := b.table[tableKey(unitKey)]
			if !ok {
				return fmt.Errorf("unit record %s missing from run table: %w", unitKey, domerrors.ErrNotFound)
			}

			entry.Record.Document.AppendRelation(unitRecord.PID(), lom.RelationIsPartOf)
			unitRecord.Document.AppendRelation(entry.Record.PID(), lom.RelationHasPart)

			courseKey := CourseKeyFromCourse(course)
			courseRecord, ok := b.table[tableKey(courseKey)]
			if !ok {
				return fmt.Errorf("course record %s missing from run table: %w", courseKey, domerrors.ErrNotFound)
			}

			unitRecord.Document.AppendRelation(courseRecord.PID(), lom.RelationIsPartOf)
			courseRecord.Document.AppendRelation(unitRecord.PID(), lom.RelationHasPart)
		}
	}

	return b.linkPredecessors(ctx)
}

// linkPredecessors adds continues/iscontinuedby relations for courses
// whose source data names a non-root predecessor. A predecessor that was
// never imported is skipped silently; one that exists is materialized
// read-only if it is not already part of the run.
func (b *Builder) linkPredecessors(ctx context.Context) error {
	keyStrings := make([]string, 0, len(b.sources))
	for keyString := range b.sources {
		keyStrings = append(keyStrings, keyString)
	}
	sort.Strings(keyStrings)

	for _, keyString := range keyStrings {
		sourceID := b.sources[keyString]
		if sourceID == "" || sourceID == moodle.RootSourceID {
			continue
		}

		courseRecord := b.table[keyString]
		predecessorKey := NewCourseKey(sourceID)

		predecessor, ok := b.table[tableKey(predecessorKey)]
		if !ok {
			var err error
			predecessor, err = b.fetchExisting(ctx, predecessorKey)
			if domerrors.IsNotFound(err) {
				b.log.WithField("sourceid", sourceID).
					Debugf("predecessor of course %s was never imported, skipping continuation link", courseRecord.PID())
				continue
			}
			if err != nil {
				return err
			}
		}

		predecessor.Document.AppendRelation(courseRecord.PID(), lom.RelationIsContinuedBy)
		courseRecord.Document.AppendRelation(predecessor.PID(), lom.RelationContinues)
	}
	return nil
}

// fetchElseCreate resolves a Key to its Record, creating a fresh draft in
// the external store when no persistent identifier exists yet. Within a
// run each Key resolves to one in-memory Record.
func (b *Builder) fetchElseCreate(ctx context.Context, key Key) (*Record, error) {
	if record, ok := b.table[tableKey(key)]; ok {
		return record, nil
	}

	record := &Record{Key: key}

	_, err := b.pids.Get(ctx, moodlePIDType, key.MoodlePIDValue())
	switch {
	case domerrors.IsNotFound(err):
		doc := lom.NewRecordDocument(string(key.ResourceType()), key.MoodlePIDValue())
		if err := b.records.Create(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to create draft for %s: %w", key, err)
		}
		record.Status = StatusNew
		record.Document = doc
	case err != nil:
		return nil, fmt.Errorf("pid lookup for %s: %w", key, err)
	default:
		doc, err := b.records.Read(ctx, key.MoodlePIDValue())
		if err != nil {
			return nil, fmt.Errorf("failed to read record %s: %w", key, err)
		}
		record.Status = StatusEdit
		record.Document = doc
		record.Previous = doc.DeepCopy()
	}

	b.log.WithField("status", string(record.Status)).
		Debugf("record materialized for %s", key)

	b.table[tableKey(key)] = record
	b.order = append(b.order, record)
	return record, nil
}

// fetchExisting materializes a read-only Record for a Key that must
// already exist in the external store.
func (b *Builder) fetchExisting(ctx context.Context, key Key) (*Record, error) {
	if _, err := b.pids.Get(ctx, moodlePIDType, key.MoodlePIDValue()); err != nil {
		return nil, err
	}
	doc, err := b.records.Read(ctx, key.MoodlePIDValue())
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}

	record := &Record{
		Key:      key,
		Status:   StatusEdit,
		Document: doc,
		Previous: doc.DeepCopy(),
		ReadOnly: true,
	}
	b.table[tableKey(key)] = record
	b.order = append(b.order, record)
	return record, nil
}
