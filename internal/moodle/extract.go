package moodle

import (
	"fmt"
	"sort"
	"strings"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
)

// ExtractElements returns the flat, profile-normalized element list of a
// payload. Profile 1.0 nests elements as files under a course-keyed
// mapping; profile 2.0 carries a flat list of element containers.
func ExtractElements(doc map[string]any) ([]Element, error) {
	profile, err := stringField(doc, "applicationprofile")
	if err != nil {
		return nil, err
	}

	raw, ok := doc["moodlecourses"]
	if !ok {
		return nil, domerrors.NewValidationError("moodlecourses", "missing required field")
	}

	switch profile {
	case Profile10:
		return extractProfile10(raw)
	case Profile20:
		return extractProfile20(raw)
	default:
		return nil, fmt.Errorf("%w: %q", domerrors.ErrUnsupportedProfile, profile)
	}
}

func extractProfile10(raw any) ([]Element, error) {
	courses, ok := raw.(map[string]any)
	if !ok {
		return nil, domerrors.NewValidationError("moodlecourses", "expected object keyed by courseid")
	}

	// Containers are visited in sorted courseid order so identical
	// payloads always yield the same element order.
	courseIDs := make([]string, 0, len(courses))
	for courseID := range courses {
		courseIDs = append(courseIDs, courseID)
	}
	sort.Strings(courseIDs)

	var elements []Element
	for _, courseID := range courseIDs {
		entry := courses[courseID]
		container, ok := entry.(map[string]any)
		if !ok {
			return nil, domerrors.NewValidationError("moodlecourses."+courseID, "not an object")
		}
		files, ok := container["files"].([]any)
		if !ok {
			return nil, domerrors.NewValidationError("moodlecourses."+courseID+".files", "missing or not a list")
		}
		for i, file := range files {
			element, ok := file.(map[string]any)
			if !ok {
				return nil, domerrors.NewValidationError(
					fmt.Sprintf("moodlecourses.%s.files[%d]", courseID, i), "not an object")
			}
			elements = append(elements, Element(element))
		}
	}
	return elements, nil
}

func extractProfile20(raw any) ([]Element, error) {
	containers, ok := raw.([]any)
	if !ok {
		return nil, domerrors.NewValidationError("moodlecourses", "expected list of element containers")
	}

	var elements []Element
	for i, entry := range containers {
		container, ok := entry.(map[string]any)
		if !ok {
			return nil, domerrors.NewValidationError(fmt.Sprintf("moodlecourses[%d]", i), "not an object")
		}
		list, ok := container["elements"].([]any)
		if !ok {
			return nil, domerrors.NewValidationError(fmt.Sprintf("moodlecourses[%d].elements", i), "missing or not a list")
		}
		for j, e := range list {
			element, ok := e.(map[string]any)
			if !ok {
				return nil, domerrors.NewValidationError(
					fmt.Sprintf("moodlecourses[%d].elements[%d]", i, j), "not an object")
			}
			elements = append(elements, Element(element))
		}
	}
	return elements, nil
}

// PostProcess normalizes extracted elements in place: identity-bearing
// string fields are trimmed so that downstream key construction and
// validation-dependent consumers see canonical values.
func PostProcess(elements []Element) {
	trim := func(doc map[string]any, key string) {
		if value, ok := doc[key].(string); ok {
			doc[key] = strings.TrimSpace(value)
		}
	}

	for _, element := range elements {
		trim(element, "year")
		trim(element, "semester")

		courses, err := element.Courses()
		if err != nil {
			continue
		}
		for _, course := range courses {
			trim(course, "courseid")
			trim(course, "sourceid")
		}
	}
}
