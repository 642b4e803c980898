package model

import "time"

// FormatKind classifies a metadata format.  Exactly one kind applies to
// each format.
type FormatKind string

const (
	FormatDefault  FormatKind = "default"  // seeded at boot, e.g. oai_dc
	FormatCustom   FormatKind = "custom"   // uploaded schema
	FormatTemplate FormatKind = "template" // equals a template's native schema
)

// Valid reports whether k is one of the known kinds.
func (k FormatKind) Valid() bool {
	switch k {
	case FormatDefault, FormatCustom, FormatTemplate:
		return true
	}
	return false
}

// MetadataFormat is a dissemination format.  OwnerTemplateID is non-nil
// iff Kind == FormatTemplate.
type MetadataFormat struct {
	ID              int64      `db:"id"                json:"id"`
	Prefix          string     `db:"prefix"            json:"prefix"`
	Namespace       string     `db:"namespace"         json:"namespace"`
	SchemaURL       string     `db:"schema_url"        json:"schema_url"`
	SchemaContent   string     `db:"schema_content"    json:"-"`
	Kind            FormatKind `db:"kind"              json:"kind"`
	OwnerTemplateID *int64     `db:"owner_template_id" json:"owner_template_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at"        json:"created_at"`
}

// IsTemplateDerived reports whether f is the native form of a template.
func (f MetadataFormat) IsTemplateDerived() bool {
	return f.Kind == FormatTemplate && f.OwnerTemplateID != nil
}

// IsDefault reports whether f was seeded at boot.
func (f MetadataFormat) IsDefault() bool { return f.Kind == FormatDefault }

// OwnedBy reports whether f is the template-derived format of templateID.
func (f MetadataFormat) OwnedBy(templateID int64) bool {
	return f.IsTemplateDerived() && *f.OwnerTemplateID == templateID
}

// FormatMapping routes documents of one template into a non-derived format
// through an XSLT stylesheet.
type FormatMapping struct {
	ID           int64 `db:"id"            json:"id"`
	TemplateID   int64 `db:"template_id"   json:"template_id"`
	FormatID     int64 `db:"format_id"     json:"format_id"`
	StylesheetID int64 `db:"stylesheet_id" json:"stylesheet_id"`
}
