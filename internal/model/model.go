// internal/model/model.go
//
// Domain records shared by the store, the index maintainer, and the
// protocol engine.
//
// Context
// -------
// Every struct here mirrors one table in the repository schema (see
// internal/database/migrations).  The types carry `db` tags so sqlx can scan
// straight into them, and contain no behaviour beyond small predicates.
//
// Notes
// -----
//   - Store methods wrap the sentinel errors below with `%w`; callers test
//     with errors.Is.
//   - Timestamps are always UTC.
package model

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("duplicate key")

	// ErrConflict is returned when a write breaks a registry invariant,
	// e.g. mapping a template onto a template-derived format.
	ErrConflict = errors.New("conflict")
)

//
// Settings
//

// Settings is the repository identity singleton.
type Settings struct {
	Name              string `db:"repository_name"       json:"name"`
	Identifier        string `db:"repository_identifier" json:"identifier"`
	AdminEmail        string `db:"admin_email"           json:"admin_email"`
	HarvestingEnabled bool   `db:"harvesting_enabled"    json:"harvesting_enabled"`
}

//
// Templates and documents
//

// Template is one schema version.  Versions of the same logical template
// share a VersionGroupID.
type Template struct {
	ID             int64  `db:"id"               json:"id"`
	Title          string `db:"title"            json:"title"`
	VersionGroupID int64  `db:"version_group_id" json:"version_group_id"`
	VersionNumber  int    `db:"version_number"   json:"version_number"`
	Content        string `db:"content"          json:"content,omitempty"`
}

// Document is a record in the underlying document store.
type Document struct {
	ID         string    `db:"id"          json:"id"`
	TemplateID int64     `db:"template_id" json:"template_id"`
	Title      string    `db:"title"       json:"title"`
	XML        string    `db:"xml_content" json:"xml"`
	Public     bool      `db:"is_public"   json:"public"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

// DocumentObserver receives change notifications from the document store.
// Implementations must not return errors to the writer; see
// internal/index.Maintainer.
type DocumentObserver interface {
	OnDocumentSaved(ctx context.Context, doc Document)
	OnDocumentDeleted(ctx context.Context, doc Document)
}

//
// Stylesheets
//

// Stylesheet is an XSLT resource referenced by format mappings.
type Stylesheet struct {
	ID      int64  `db:"id"      json:"id"`
	Name    string `db:"name"    json:"name"`
	Content string `db:"content" json:"content,omitempty"`
}
