package lom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// Purpose tag for OEFOS subject classification.
const oefosPurpose = "discipline"

// NewRecordDocument builds the skeleton document for a freshly created
// draft: resource type, the external moodle PID and the matching catalog
// identifier.
func NewRecordDocument(resourceType, pidValue string) *Document {
	doc := &Document{
		PIDs: map[string]PID{
			"moodle": {Provider: "moodle", Identifier: pidValue},
		},
		ResourceType: resourceType,
	}
	doc.AppendIdentifier(pidValue, "moodle")
	return doc
}

// AppendIdentifier adds a catalog-qualified identifier entry.
func (d *Document) AppendIdentifier(entry, catalog string) {
	if entry == "" {
		return
	}
	id := Identifier{Catalog: catalog, Entry: entry}
	if slices.Contains(d.Metadata.General.Identifiers, id) {
		return
	}
	d.Metadata.General.Identifiers = append(d.Metadata.General.Identifiers, id)
}

// SetTitle sets the record title with a language tag.
func (d *Document) SetTitle(text, lang string) {
	d.Metadata.General.Title = &LangString{Text: text, Lang: lang}
}

// AppendLanguage adds a language to the general category.
func (d *Document) AppendLanguage(lang string) {
	if lang == "" || slices.Contains(d.Metadata.General.Languages, lang) {
		return
	}
	d.Metadata.General.Languages = append(d.Metadata.General.Languages, lang)
}

// AppendDescription adds a language-tagged description.
func (d *Document) AppendDescription(text, lang string) {
	if text == "" {
		return
	}
	entry := LangString{Text: text, Lang: lang}
	if slices.Contains(d.Metadata.General.Description, entry) {
		return
	}
	d.Metadata.General.Description = append(d.Metadata.General.Description, entry)
}

// AppendKeyword adds a language-tagged keyword. Empty keywords are dropped.
func (d *Document) AppendKeyword(text, lang string) {
	if text == "" {
		return
	}
	entry := LangString{Text: text, Lang: lang}
	if slices.Contains(d.Metadata.General.Keywords, entry) {
		return
	}
	d.Metadata.General.Keywords = append(d.Metadata.General.Keywords, entry)
}

// AppendContribute adds a contributor with the given role.
// Empty names are dropped.
func (d *Document) AppendContribute(name, role string) {
	if name == "" {
		return
	}
	entry := Contribute{Role: role, Entity: name}
	if slices.Contains(d.Metadata.Lifecycle.Contributes, entry) {
		return
	}
	d.Metadata.Lifecycle.Contributes = append(d.Metadata.Lifecycle.Contributes, entry)
}

// SetVersion sets the version statement and its associated datetime.
func (d *Document) SetVersion(text, datetime string) {
	d.Metadata.Lifecycle.Version = &Version{Text: text, Datetime: datetime}
}

// SetDatetime sets the lifecycle datetime (an ISO-8601 calendar date).
func (d *Document) SetDatetime(date string) {
	d.Metadata.Lifecycle.Datetime = date
}

// AppendFormat adds a technical format (MIME type).
func (d *Document) AppendFormat(mime string) {
	if mime == "" || slices.Contains(d.Metadata.Technical.Formats, mime) {
		return
	}
	d.Metadata.Technical.Formats = append(d.Metadata.Technical.Formats, mime)
}

// SetSize sets the technical size in bytes.
func (d *Document) SetSize(size string) {
	d.Metadata.Technical.Size = size
}

// SetRightsURL sets the rights URL verbatim.
func (d *Document) SetRightsURL(url string) {
	d.Metadata.Rights.URL = url
}

// AppendEducationalDescription adds a language-tagged educational description.
func (d *Document) AppendEducationalDescription(text, lang string) {
	if text == "" {
		return
	}
	entry := LangString{Text: text, Lang: lang}
	if slices.Contains(d.Metadata.Educational.Description, entry) {
		return
	}
	d.Metadata.Educational.Description = append(d.Metadata.Educational.Description, entry)
}

// AppendLearningResourceType adds a controlled learning-resource-type value.
func (d *Document) AppendLearningResourceType(kind string) {
	if kind == "" || slices.Contains(d.Metadata.Educational.LearningResourceTypes, kind) {
		return
	}
	d.Metadata.Educational.LearningResourceTypes = append(d.Metadata.Educational.LearningResourceTypes, kind)
}

// AppendContext adds an educational context value.
func (d *Document) AppendContext(ctx string) {
	if ctx == "" || slices.Contains(d.Metadata.Educational.Contexts, ctx) {
		return
	}
	d.Metadata.Educational.Contexts = append(d.Metadata.Educational.Contexts, ctx)
}

// AppendOefosID adds one OEFOS subject-classification taxon. Pass an empty
// lang for the untagged entry.
func (d *Document) AppendOefosID(id, lang string) {
	if id == "" {
		return
	}
	taxon := Taxon{ID: id, Lang: lang}

	// all OEFOS taxons live in a single discipline classification block
	var block *Classification
	for i := range d.Metadata.Classification {
		if d.Metadata.Classification[i].Purpose == oefosPurpose {
			block = &d.Metadata.Classification[i]
			break
		}
	}
	if block == nil {
		d.Metadata.Classification = append(d.Metadata.Classification, Classification{Purpose: oefosPurpose})
		block = &d.Metadata.Classification[len(d.Metadata.Classification)-1]
	}

	if slices.Contains(block.Taxons, taxon) {
		return
	}
	block.Taxons = append(block.Taxons, taxon)
}

// AppendRelation adds a directed relation to another record.
func (d *Document) AppendRelation(pid, kind string) {
	entry := Relation{Kind: kind, PID: pid}
	if slices.Contains(d.Metadata.Relations, entry) {
		return
	}
	d.Metadata.Relations = append(d.Metadata.Relations, entry)
}

// SetDefaultPreview marks the attached file shown as record preview.
func (d *Document) SetDefaultPreview(filename string) {
	d.Files.Enabled = true
	d.Files.DefaultPreview = filename
}

// DeepCopy returns an independent copy of the document.
func (d *Document) DeepCopy() *Document {
	raw, err := json.Marshal(d)
	if err != nil {
		// Document contains only JSON-safe types; marshalling cannot fail.
		panic(fmt.Sprintf("lom: marshal document: %v", err))
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("lom: unmarshal document: %v", err))
	}
	return &out
}

// Equal reports whether two documents carry the same content.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return reflect.DeepEqual(normalize(d), normalize(other))
}

// normalize round-trips through JSON so that nil and empty slices compare
// equal after a DeepCopy.
func normalize(d *Document) map[string]any {
	raw, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("lom: marshal document: %v", err))
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		panic(fmt.Sprintf("lom: decode document: %v", err))
	}
	return out
}
