package lom

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordDocument(t *testing.T) {
	doc := NewRecordDocument("file", "d41d8cd98f00b204e9800998ecf8427e")

	assert.Equal(t, "file", doc.ResourceType)
	require.Contains(t, doc.PIDs, "moodle")
	assert.Equal(t, "moodle", doc.PIDs["moodle"].Provider)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", doc.PIDs["moodle"].Identifier)

	require.Len(t, doc.Metadata.General.Identifiers, 1)
	assert.Equal(t, Identifier{Catalog: "moodle", Entry: "d41d8cd98f00b204e9800998ecf8427e"}, doc.Metadata.General.Identifiers[0])
}

func TestAppendSetSemantics(t *testing.T) {
	doc := &Document{}

	doc.AppendIdentifier("10005", "moodle-id")
	doc.AppendIdentifier("10005", "moodle-id")
	assert.Len(t, doc.Metadata.General.Identifiers, 1, "identical identifier appended twice must dedupe")

	doc.AppendIdentifier("10005", "teachcenter-course-id")
	assert.Len(t, doc.Metadata.General.Identifiers, 2, "same entry under different catalog is a distinct identifier")

	doc.AppendKeyword("analysis", "de")
	doc.AppendKeyword("analysis", "de")
	doc.AppendKeyword("analysis", "en")
	assert.Len(t, doc.Metadata.General.Keywords, 2)

	doc.AppendRelation("pid-1", RelationIsPartOf)
	doc.AppendRelation("pid-1", RelationIsPartOf)
	doc.AppendRelation("pid-1", RelationHasPart)
	assert.Len(t, doc.Metadata.Relations, 2, "relation append must dedupe on (kind, pid)")
}

func TestAppendDropsEmptyValues(t *testing.T) {
	doc := &Document{}

	doc.AppendKeyword("", LangNone)
	doc.AppendContribute("", "Author")
	doc.AppendLanguage("")
	doc.AppendDescription("", "en")
	doc.AppendOefosID("", "")

	assert.Empty(t, doc.Metadata.General.Keywords)
	assert.Empty(t, doc.Metadata.Lifecycle.Contributes)
	assert.Empty(t, doc.Metadata.General.Languages)
	assert.Empty(t, doc.Metadata.General.Description)
	assert.Empty(t, doc.Metadata.Classification)
}

func TestSettersOverwrite(t *testing.T) {
	doc := &Document{}

	doc.SetTitle("Old title", "en")
	doc.SetTitle("New title", "de")
	require.NotNil(t, doc.Metadata.General.Title)
	assert.Equal(t, LangString{Text: "New title", Lang: "de"}, *doc.Metadata.General.Title)

	doc.SetVersion("SS 2023", "2023")
	require.NotNil(t, doc.Metadata.Lifecycle.Version)
	assert.Equal(t, Version{Text: "SS 2023", Datetime: "2023"}, *doc.Metadata.Lifecycle.Version)

	doc.SetDatetime("2023-04-01")
	assert.Equal(t, "2023-04-01", doc.Metadata.Lifecycle.Datetime)
}

func TestAppendOefosID_SingleBlock(t *testing.T) {
	doc := &Document{}

	doc.AppendOefosID("1234", "")
	doc.AppendOefosID("1234", "en")
	doc.AppendOefosID("123", "")
	doc.AppendOefosID("123", "en")
	doc.AppendOefosID("1234", "") // duplicate

	require.Len(t, doc.Metadata.Classification, 1, "all OEFOS ids share one classification block")
	block := doc.Metadata.Classification[0]
	assert.Equal(t, "discipline", block.Purpose)
	assert.Equal(t, []Taxon{
		{ID: "1234"},
		{ID: "1234", Lang: "en"},
		{ID: "123"},
		{ID: "123", Lang: "en"},
	}, block.Taxons)
}

func TestDeepCopyIsIndependent(t *testing.T) {
	doc := NewRecordDocument("unit", "10005-2023-SS")
	doc.SetTitle("Analysis (SS 2023)", LangNone)

	clone := doc.DeepCopy()
	clone.SetTitle("changed", "en")
	clone.AppendKeyword("extra", "en")

	assert.Equal(t, "Analysis (SS 2023)", doc.Metadata.General.Title.Text)
	assert.Empty(t, doc.Metadata.General.Keywords)
}

func TestEqual(t *testing.T) {
	doc := NewRecordDocument("course", "10005")
	doc.AppendKeyword("Vorlesung (VO)", LangNone)

	clone := doc.DeepCopy()
	assert.True(t, doc.Equal(clone), "deep copy must compare equal")

	clone.AppendRelation("pid-9", RelationHasPart)
	assert.False(t, doc.Equal(clone))

	// no-op append keeps documents equal
	clone2 := doc.DeepCopy()
	clone2.AppendKeyword("Vorlesung (VO)", LangNone)
	assert.True(t, doc.Equal(clone2))
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := NewRecordDocument("file", "abc123")
	doc.SetTitle("slides.pdf", "en")
	doc.AppendFormat("application/pdf")
	doc.SetSize("1474006")
	doc.SetRightsURL("https://creativecommons.org/licenses/by/4.0/")
	doc.SetDefaultPreview("slides.pdf")

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, doc.Equal(&decoded))
	assert.Equal(t, "slides.pdf", decoded.Files.DefaultPreview)
	assert.True(t, decoded.Files.Enabled)
}
