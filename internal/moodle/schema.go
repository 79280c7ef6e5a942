package moodle

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
)

// Application-profile versions understood by the validator.
const (
	Profile10 = "1.0"
	Profile20 = "2.0"
)

// Controlled vocabularies.
var (
	structureVocabulary = []string{
		"",
		"Seminar (SE)",
		"Vorlesung (VO)",
		"Übung (UE)",
		"Seminar-Projekt (SP)",
		"Vorlesung und Übung (VU)",
		"Orientierungslehrveranstaltung (OL)",
	}

	semesterVocabulary = []string{"SS", "WS"}
)

// Classification constants pinned by the profile-1.0 schema.
const (
	classificationType = "oefos"
	classificationURL  = "https://www.data.gv.at/katalog/dataset/stat_ofos-2012"
)

// Required string attributes shared by both element schemas.
var elementStringFields = []string{
	"abstract",
	"context",
	"filesize",
	"language",
	"mimetype",
	"resourcetype",
	"timereleased",
	"title",
	"year",
}

// Required string attributes of a course entry.
var courseStringFields = []string{
	"courseid",
	"courselanguage",
	"coursename",
	"description",
	"identifier",
	"lecturer",
	"objective",
	"organisation",
	"sourceid",
}

// ValidatePayload checks a raw parsed payload against the schema matching
// its declared applicationprofile. It returns the first structural
// violation found plus the document-level cross-record violations
// (duplicate URLs, ambiguous course ids), each as a ValidationError.
func ValidatePayload(doc map[string]any) error {
	profile, err := stringField(doc, "applicationprofile")
	if err != nil {
		return err
	}

	switch profile {
	case Profile10, Profile20:
	default:
		return fmt.Errorf("%w: %q", domerrors.ErrUnsupportedProfile, profile)
	}

	elements, err := ExtractElements(doc)
	if err != nil {
		return err
	}

	for i, element := range elements {
		if err := validateElement(element, profile); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}

	if err := validateUniqueURLs(elements); err != nil {
		return err
	}
	return validateUnambiguousCourses(elements)
}

func validateElement(element Element, profile string) error {
	for _, key := range elementStringFields {
		if _, err := element.String(key); err != nil {
			return err
		}
	}

	// canonical URL field differs per profile
	urlField := "fileurl"
	if profile == Profile20 {
		urlField = "source"
	}
	if _, err := element.String(urlField); err != nil {
		return err
	}

	// profile 1.0 additionally requires the export-side hash and
	// creation time
	if profile == Profile10 {
		for _, key := range []string{"contenthash", "filecreationtime"} {
			if _, err := element.String(key); err != nil {
				return err
			}
		}
	}

	semester, err := element.String("semester")
	if err != nil {
		return err
	}
	if !inVocabulary(semester, semesterVocabulary) {
		return domerrors.NewVocabularyError("semester", semester, semesterVocabulary)
	}

	if err := validateTags(element); err != nil {
		return err
	}
	if err := validatePersons(element); err != nil {
		return err
	}
	if err := validateLicense(element); err != nil {
		return err
	}
	if err := validateClassifications(element, profile); err != nil {
		return err
	}

	courses, err := element.Courses()
	if err != nil {
		return err
	}
	for i, course := range courses {
		if err := validateCourse(course); err != nil {
			return fmt.Errorf("courses[%d]: %w", i, err)
		}
	}
	return nil
}

func validateCourse(course Course) error {
	for _, key := range courseStringFields {
		if _, err := course.String(key); err != nil {
			return err
		}
	}

	structure, err := course.String("structure")
	if err != nil {
		return err
	}
	if !inVocabulary(structure, structureVocabulary) {
		return domerrors.NewVocabularyError("structure", structure, structureVocabulary)
	}
	return nil
}

func validateTags(element Element) error {
	raw, ok := element["tags"]
	if !ok {
		return domerrors.NewValidationError("tags", "missing required field")
	}
	list, ok := raw.([]any)
	if !ok {
		return domerrors.NewValidationError("tags", "not a list")
	}
	for i, entry := range list {
		if _, ok := entry.(string); !ok {
			return domerrors.NewValidationError(fmt.Sprintf("tags[%d]", i), "not a string")
		}
	}
	return nil
}

func validatePersons(element Element) error {
	raw, ok := element["persons"]
	if !ok {
		return domerrors.NewValidationError("persons", "missing required field")
	}
	list, ok := raw.([]any)
	if !ok {
		return domerrors.NewValidationError("persons", "not a list")
	}
	for i, entry := range list {
		person, ok := entry.(map[string]any)
		if !ok {
			return domerrors.NewValidationError(fmt.Sprintf("persons[%d]", i), "not an object")
		}
		for _, key := range []string{"firstname", "lastname", "role"} {
			if _, err := stringField(person, key); err != nil {
				return fmt.Errorf("persons[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func validateLicense(element Element) error {
	raw, ok := element["license"]
	if !ok {
		// license is the one optional nested block
		return nil
	}
	license, ok := raw.(map[string]any)
	if !ok {
		return domerrors.NewValidationError("license", "not an object")
	}
	for _, key := range []string{"fullname", "shortname", "source"} {
		if _, err := stringField(license, key); err != nil {
			return fmt.Errorf("license: %w", err)
		}
	}
	return nil
}

func validateClassifications(element Element, profile string) error {
	raw, ok := element["classification"]
	if !ok {
		return domerrors.NewValidationError("classification", "missing required field")
	}
	list, ok := raw.([]any)
	if !ok {
		return domerrors.NewValidationError("classification", "not a list")
	}
	for i, entry := range list {
		block, ok := entry.(map[string]any)
		if !ok {
			return domerrors.NewValidationError(fmt.Sprintf("classification[%d]", i), "not an object")
		}
		if profile == Profile10 {
			if blockType, _ := block["type"].(string); blockType != classificationType {
				return domerrors.NewValidationError(
					fmt.Sprintf("classification[%d].type", i),
					fmt.Sprintf("must be %q, got %q", classificationType, blockType))
			}
			if blockURL, _ := block["url"].(string); blockURL != classificationURL {
				return domerrors.NewValidationError(
					fmt.Sprintf("classification[%d].url", i),
					fmt.Sprintf("must be %q, got %q", classificationURL, blockURL))
			}
		}
		values, ok := block["values"].([]any)
		if !ok {
			return domerrors.NewValidationError(fmt.Sprintf("classification[%d].values", i), "missing or not a list")
		}
		for j, v := range values {
			value, ok := v.(map[string]any)
			if !ok {
				return domerrors.NewValidationError(fmt.Sprintf("classification[%d].values[%d]", i, j), "not an object")
			}
			for _, key := range []string{"identifier", "name"} {
				if _, err := stringField(value, key); err != nil {
					return fmt.Errorf("classification[%d].values[%d]: %w", i, j, err)
				}
			}
		}
	}
	return nil
}

// validateUniqueURLs enforces that every element's canonical URL appears
// exactly once across the whole document, listing every duplicate.
func validateUniqueURLs(elements []Element) error {
	counts := make(map[string]int)
	for _, element := range elements {
		counts[element.URL()]++
	}

	var duplicated []string
	for url, count := range counts {
		if count > 1 {
			duplicated = append(duplicated, url)
		}
	}
	if len(duplicated) == 0 {
		return nil
	}
	sort.Strings(duplicated)
	return domerrors.NewValidationError(
		"fileurl",
		fmt.Sprintf("different file-JSONs with same URL: %s", strings.Join(duplicated, ", ")),
	)
}

// validateUnambiguousCourses enforces that every occurrence of a course id
// carries identical course metadata. The pseudo-course id is exempt.
func validateUnambiguousCourses(elements []Element) error {
	seen := make(map[string]Course)
	ambiguous := make(map[string]bool)

	for _, element := range elements {
		courses, err := element.Courses()
		if err != nil {
			return err
		}
		for _, course := range courses {
			id := course.ID()
			if id == PseudoCourseID {
				continue
			}
			if prev, ok := seen[id]; ok {
				if !reflect.DeepEqual(map[string]any(prev), map[string]any(course)) {
					ambiguous[id] = true
				}
				continue
			}
			seen[id] = course
		}
	}

	if len(ambiguous) == 0 {
		return nil
	}
	ids := make([]string, 0, len(ambiguous))
	for id := range ambiguous {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return domerrors.NewValidationError(
		"courseid",
		fmt.Sprintf("different course-JSONs with same courseid: %s", strings.Join(ids, ", ")),
	)
}

func inVocabulary(value string, vocabulary []string) bool {
	for _, allowed := range vocabulary {
		if value == allowed {
			return true
		}
	}
	return false
}
