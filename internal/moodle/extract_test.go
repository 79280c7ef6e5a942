package moodle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractElements_Profile10(t *testing.T) {
	payload := testPayload(
		testElement("https://moodle.example.org/file1.pdf"),
		testElement("https://moodle.example.org/file2.pdf"),
	)

	elements, err := ExtractElements(payload)
	require.NoError(t, err)
	require.Len(t, elements, 2)

	urls := []string{elements[0].URL(), elements[1].URL()}
	assert.Contains(t, urls, "https://moodle.example.org/file1.pdf")
	assert.Contains(t, urls, "https://moodle.example.org/file2.pdf")
}

func TestExtractElements_Profile20(t *testing.T) {
	element := testElement("")
	delete(element, "fileurl")
	element["source"] = "https://moodle.example.org/video"
	element["contenthash"] = "0cc175b9c0f1b6a831c399e269772661"

	payload := map[string]any{
		"applicationprofile": "2.0",
		"moodlecourses": []any{
			map[string]any{"elements": []any{element}},
		},
	}

	elements, err := ExtractElements(payload)
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "https://moodle.example.org/video", elements[0].URL())
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", elements[0].ContentHash())
}

func TestExtractElements_MalformedContainer(t *testing.T) {
	payload := map[string]any{
		"applicationprofile": "1.0",
		"moodlecourses":      []any{"not-an-object"},
	}
	_, err := ExtractElements(payload)
	assert.Error(t, err, "profile 1.0 requires a course-keyed object")
}

func TestPostProcess_TrimsIdentityFields(t *testing.T) {
	element := Element(testElement("https://moodle.example.org/file1.pdf"))
	element["year"] = " 2023 "
	element["semester"] = "SS "
	course := element["courses"].([]any)[0].(map[string]any)
	course["courseid"] = " 10005"
	course["sourceid"] = "-1 "

	PostProcess([]Element{element})

	assert.Equal(t, "2023", element["year"])
	assert.Equal(t, "SS", element["semester"])
	assert.Equal(t, "10005", course["courseid"])
	assert.Equal(t, "-1", course["sourceid"])
}

func TestElement_IsLink(t *testing.T) {
	element := Element(testElement("https://moodle.example.org/page"))
	assert.False(t, element.IsLink())

	element["mimetype"] = LinkMimetype
	assert.True(t, element.IsLink())
}

func TestCourse_Helpers(t *testing.T) {
	course := Course(testCourse("0"))
	assert.True(t, course.IsPseudo())
	assert.Equal(t, "-1", course.SourceID())

	course = Course(testCourse("10005"))
	assert.False(t, course.IsPseudo())
	assert.Equal(t, "10005", course.ID())
}

func TestExtractElements_Profile10OrderIsDeterministic(t *testing.T) {
	first := testElement("https://moodle.example.org/a.pdf")
	second := testElement("https://moodle.example.org/b.pdf")
	payload := map[string]any{
		"applicationprofile": "1.0",
		"moodlecourses": map[string]any{
			"20001": map[string]any{"files": []any{second}},
			"10001": map[string]any{"files": []any{first}},
		},
	}

	// Containers are visited in sorted courseid order, independent of
	// map iteration order.
	for i := 0; i < 10; i++ {
		elements, err := ExtractElements(payload)
		require.NoError(t, err)
		require.Len(t, elements, 2)
		assert.Equal(t, "https://moodle.example.org/a.pdf", elements[0].URL())
		assert.Equal(t, "https://moodle.example.org/b.pdf", elements[1].URL())
	}
}
