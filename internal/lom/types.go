// Package lom implements the learning-object-metadata document model used
// by repository records. Documents follow the LOM structure (general,
// lifecycle, technical, rights, educational, classification, relation)
// with language-tagged strings throughout.
//
// All Append* builder methods have set semantics: appending an entry that
// is already present is a no-op. Re-running a conversion or a linking pass
// against the same document therefore never duplicates entries, which is
// what makes repeated imports idempotent.
package lom

// Language tag applied to values that carry no natural language.
const LangNone = "x-none"

// Relation kinds between records.
const (
	RelationIsPartOf      = "ispartof"
	RelationHasPart       = "haspart"
	RelationContinues     = "continues"
	RelationIsContinuedBy = "iscontinuedby"
)

// LangString is a language-tagged string value.
type LangString struct {
	Text string `json:"#text"`
	Lang string `json:"lang,omitempty"`
}

// Identifier is a catalog-qualified identifier entry.
type Identifier struct {
	Catalog string `json:"catalog"`
	Entry   string `json:"entry"`
}

// General is the LOM general category.
type General struct {
	Identifiers []Identifier `json:"identifier,omitempty"`
	Title       *LangString  `json:"title,omitempty"`
	Languages   []string     `json:"language,omitempty"`
	Description []LangString `json:"description,omitempty"`
	Keywords    []LangString `json:"keyword,omitempty"`
}

// Contribute is one contributor with a vocabulary role.
type Contribute struct {
	Role   string `json:"role"`
	Entity string `json:"entity"`
}

// Version is a version statement with its associated datetime.
type Version struct {
	Text     string `json:"#text"`
	Datetime string `json:"datetime,omitempty"`
}

// Lifecycle is the LOM lifecycle category.
type Lifecycle struct {
	Contributes []Contribute `json:"contribute,omitempty"`
	Version     *Version     `json:"version,omitempty"`
	Datetime    string       `json:"datetime,omitempty"`
}

// Technical is the LOM technical category.
type Technical struct {
	Formats []string `json:"format,omitempty"`
	Size    string   `json:"size,omitempty"`
}

// Rights is the LOM rights category.
type Rights struct {
	URL string `json:"url,omitempty"`
}

// Educational is the LOM educational category.
type Educational struct {
	Description           []LangString `json:"description,omitempty"`
	LearningResourceTypes []string     `json:"learningresourcetype,omitempty"`
	Contexts              []string     `json:"context,omitempty"`
}

// Taxon is one entry in a classification taxon path.
type Taxon struct {
	ID   string `json:"id"`
	Lang string `json:"lang,omitempty"`
}

// Classification is the LOM classification category (OEFOS subject codes).
type Classification struct {
	Purpose string  `json:"purpose"`
	Taxons  []Taxon `json:"taxon,omitempty"`
}

// Relation is one directed semantic edge to another record.
type Relation struct {
	Kind string `json:"kind"`
	PID  string `json:"pid"`
}

// Metadata is the LOM metadata block of a record document.
type Metadata struct {
	General        General          `json:"general"`
	Lifecycle      Lifecycle        `json:"lifecycle,omitzero"`
	Technical      Technical        `json:"technical,omitzero"`
	Rights         Rights           `json:"rights,omitzero"`
	Educational    Educational      `json:"educational,omitzero"`
	Classification []Classification `json:"classification,omitempty"`
	Relations      []Relation       `json:"relation,omitempty"`
}

// PID is one persistent-identifier entry on a record document.
type PID struct {
	Provider   string `json:"provider"`
	Identifier string `json:"identifier"`
}

// Files is the attached-files block of a record document.
type Files struct {
	Enabled        bool   `json:"enabled"`
	DefaultPreview string `json:"default_preview,omitempty"`
}

// Document is one full repository record document.
type Document struct {
	PIDs         map[string]PID `json:"pids,omitempty"`
	ResourceType string         `json:"resource_type"`
	Metadata     Metadata       `json:"metadata"`
	Files        Files          `json:"files,omitzero"`
}
