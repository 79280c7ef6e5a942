// Package moodle implements the ingestion model for Moodle export
// payloads: the two application-profile schemas, payload validation,
// profile-aware element extraction and the fetch client.
//
// Raw payloads stay as JSON-decoded map[string]any documents all the way
// through conversion; the typed accessors on Element report schema drift
// as validation errors instead of panicking.
package moodle

import (
	"fmt"
	"strings"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
)

// PseudoCourseID is the course id shared by all Moodle-internal
// pseudo-courses. Entries carrying it never become part of the record
// graph and are exempt from the ambiguous-courseid validation.
const PseudoCourseID = "0"

// RootSourceID marks a course without a predecessor.
const RootSourceID = "-1"

// LinkMimetype marks link-only elements (Moodle external-URL resources).
// They become records of resource type "link" and carry no file payload.
const LinkMimetype = "text/url"

// Element is one file/resource entry of the export, the atomic unit of
// conversion.
type Element map[string]any

// Course is one course entry associated with an element.
type Course map[string]any

// URL returns the element's canonical URL: "fileurl" for profile-1.0
// payloads, "source" for profile-2.0 payloads.
func (e Element) URL() string {
	if url, ok := e["fileurl"].(string); ok && url != "" {
		return url
	}
	url, _ := e["source"].(string)
	return url
}

// String returns the element's string attribute or an error naming the
// attribute when it is absent or not a string.
func (e Element) String(key string) (string, error) {
	return stringField(map[string]any(e), key)
}

// ContentHash returns the element's supplied content hash, if any.
// Profile-2.0 elements may carry the hash directly, which spares a
// download when the record already exists.
func (e Element) ContentHash() string {
	hash, _ := e["contenthash"].(string)
	return hash
}

// IsLink reports whether the element is a link-only resource.
func (e Element) IsLink() bool {
	mimetype, _ := e["mimetype"].(string)
	return mimetype == LinkMimetype
}

// Courses returns the element's associated course entries.
func (e Element) Courses() ([]Course, error) {
	raw, ok := e["courses"].([]any)
	if !ok {
		return nil, domerrors.NewValidationError("courses", "missing or not a list")
	}
	courses := make([]Course, 0, len(raw))
	for i, entry := range raw {
		course, ok := entry.(map[string]any)
		if !ok {
			return nil, domerrors.NewValidationError(fmt.Sprintf("courses[%d]", i), "not an object")
		}
		courses = append(courses, Course(course))
	}
	return courses, nil
}

// String returns the course's string attribute or an error.
func (c Course) String(key string) (string, error) {
	return stringField(map[string]any(c), key)
}

// ID returns the course's id, trimmed.
func (c Course) ID() string {
	id, _ := c["courseid"].(string)
	return strings.TrimSpace(id)
}

// IsPseudo reports whether the course is the Moodle-internal pseudo-course.
func (c Course) IsPseudo() bool {
	return c.ID() == PseudoCourseID
}

// SourceID returns the course's declared predecessor id, trimmed.
func (c Course) SourceID() string {
	id, _ := c["sourceid"].(string)
	return strings.TrimSpace(id)
}

func stringField(doc map[string]any, key string) (string, error) {
	raw, ok := doc[key]
	if !ok {
		return "", domerrors.NewValidationError(key, "missing required field")
	}
	value, ok := raw.(string)
	if !ok {
		return "", domerrors.NewValidationError(key, fmt.Sprintf("expected string, got %T", raw))
	}
	return value, nil
}
