// Package graph builds the record graph of one import run: one Record per
// distinct Key referenced by the payload, converted metadata, and the
// bidirectional relations between file, unit, course and predecessor
// records.
package graph

import (
	"fmt"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
	"github.com/oergraz/moodle-lom-go/internal/filecache"
	"github.com/oergraz/moodle-lom-go/internal/moodle"
)

// ResourceType tags the kind of entity a Key identifies.
type ResourceType string

// The fixed resource-type enumeration.
const (
	ResourceCourse ResourceType = "course"
	ResourceUnit   ResourceType = "unit"
	ResourceFile   ResourceType = "file"
	ResourceLink   ResourceType = "link"
)

// Key is the identity of an entity to be imported. Every variant exposes
// its resource type, a deterministic string form for logging, and the
// single canonical identifier used against the persistent-identifier
// store.
type Key interface {
	ResourceType() ResourceType
	MoodlePIDValue() string
	fmt.Stringer
}

// FileKey identifies a file by content. Identity is the MD5 hash of the
// downloaded bytes; url, year and semester are provenance only, so two
// entries with different URLs but equal content collapse onto one record.
type FileKey struct {
	URL      string
	Year     string
	Semester string
	HashMD5  string
}

// NewFileKey constructs a FileKey from raw fields.
func NewFileKey(url, year, semester, hashMD5 string) FileKey {
	return FileKey{URL: url, Year: year, Semester: semester, HashMD5: hashMD5}
}

// FileKeyFromElement constructs a FileKey from a Moodle element. The
// content hash is taken from the element itself when the export supplies
// it, otherwise from the file cache (which implies the file has been
// downloaded).
func FileKeyFromElement(el moodle.Element, cache *filecache.Cache) (FileKey, error) {
	year, err := el.String("year")
	if err != nil {
		return FileKey{}, err
	}
	semester, err := el.String("semester")
	if err != nil {
		return FileKey{}, err
	}

	hash := el.ContentHash()
	if hash == "" {
		info, ok := cache.Get(el.URL())
		if !ok {
			return FileKey{}, fmt.Errorf("no content hash for %s: %w", el.URL(), domerrors.ErrNotFound)
		}
		hash = info.HashMD5
	}

	return NewFileKey(el.URL(), year, semester, hash), nil
}

func (k FileKey) ResourceType() ResourceType { return ResourceFile }

func (k FileKey) MoodlePIDValue() string { return k.HashMD5 }

func (k FileKey) String() string {
	return fmt.Sprintf("FileKey(url=%s, year=%s, semester=%s, hash_md5=%s)", k.URL, k.Year, k.Semester, k.HashMD5)
}

// UnitKey identifies the term-scoped unit of a course. A new unit entity
// is expected every academic term.
type UnitKey struct {
	CourseID string
	Year     string
	Semester string
}

// NewUnitKey constructs a UnitKey from raw fields.
func NewUnitKey(courseID, year, semester string) UnitKey {
	return UnitKey{CourseID: courseID, Year: year, Semester: semester}
}

// UnitKeyFromElement constructs a UnitKey from an element and one of its
// course entries.
func UnitKeyFromElement(el moodle.Element, course moodle.Course) (UnitKey, error) {
	year, err := el.String("year")
	if err != nil {
		return UnitKey{}, err
	}
	semester, err := el.String("semester")
	if err != nil {
		return UnitKey{}, err
	}
	return NewUnitKey(course.ID(), year, semester), nil
}

func (k UnitKey) ResourceType() ResourceType { return ResourceUnit }

func (k UnitKey) MoodlePIDValue() string {
	return fmt.Sprintf("%s-%s-%s", k.CourseID, k.Year, k.Semester)
}

func (k UnitKey) String() string {
	return fmt.Sprintf("UnitKey(courseid=%s, year=%s, semester=%s)", k.CourseID, k.Year, k.Semester)
}

// CourseKey identifies a course by its raw Moodle course id, stable
// across terms.
type CourseKey struct {
	CourseID string
}

// NewCourseKey constructs a CourseKey from a raw course id.
func NewCourseKey(courseID string) CourseKey {
	return CourseKey{CourseID: courseID}
}

// CourseKeyFromCourse constructs a CourseKey from a course entry.
func CourseKeyFromCourse(course moodle.Course) CourseKey {
	return NewCourseKey(course.ID())
}

func (k CourseKey) ResourceType() ResourceType { return ResourceCourse }

func (k CourseKey) MoodlePIDValue() string { return k.CourseID }

func (k CourseKey) String() string {
	return fmt.Sprintf("CourseKey(courseid=%s)", k.CourseID)
}

// LinkKey identifies a link-only resource entry by its URL.
type LinkKey struct {
	URL string
}

// NewLinkKey constructs a LinkKey from a URL.
func NewLinkKey(url string) LinkKey {
	return LinkKey{URL: url}
}

func (k LinkKey) ResourceType() ResourceType { return ResourceLink }

func (k LinkKey) MoodlePIDValue() string { return k.URL }

func (k LinkKey) String() string {
	return fmt.Sprintf("LinkKey(url=%s)", k.URL)
}
