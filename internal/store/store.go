// internal/store/store.go
//
// MySQL-backed registries for the OAI-PMH provider.
//
// Context
// -------
// Each registry in the data model gets one small struct holding the shared
// *sqlx.DB:
//
//	Settings     oai_settings            (singleton row, id = 1)
//	Formats      oai_metadata_format
//	Sets         oai_set + oai_set_template_group
//	Mappings     oai_format_mapping
//	Templates    template
//	Stylesheets  xslt_stylesheet
//	Documents    document                (fires DocumentObserver hooks)
//	Index        oai_record_index
//	Tokens       oai_resumption_page
//
// The protocol engine never sees *sqlx.DB; it consumes these structs
// through the narrow interfaces declared in internal/oai.
//
// Notes
// -----
//   - sql.ErrNoRows surfaces as model.ErrNotFound, MySQL 1062 as
//     model.ErrDuplicate.  Both are wrapped with the table name.
//   - Queries keep single spaces between tokens so sqlmock expectations
//     can match them after whitespace folding.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/database"
	"github.com/yanizio/oairepo/internal/model"
)

// Store bundles every registry over one connection pool.
type Store struct {
	Settings    *SettingsStore
	Formats     *FormatStore
	Sets        *SetStore
	Mappings    *MappingStore
	Templates   *TemplateStore
	Stylesheets *StylesheetStore
	Documents   *DocumentStore
	Index       *IndexStore
	Tokens      *TokenStore
}

// New wires every registry to db.
func New(db *sqlx.DB) *Store {
	return &Store{
		Settings:    &SettingsStore{db: db},
		Formats:     &FormatStore{db: db},
		Sets:        &SetStore{db: db},
		Mappings:    &MappingStore{db: db},
		Templates:   &TemplateStore{db: db},
		Stylesheets: &StylesheetStore{db: db},
		Documents:   &DocumentStore{db: db},
		Index:       &IndexStore{db: db},
		Tokens:      &TokenStore{db: db},
	}
}

// wrap maps driver errors onto model sentinels.
func wrap(table string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", table, model.ErrNotFound)
	case database.IsDuplicate(err):
		return fmt.Errorf("%s: %w", table, model.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", table, err)
	}
}

// affected turns a zero-row UPDATE/DELETE into ErrNotFound.
func affected(table string, res sql.Result, err error) error {
	if err != nil {
		return wrap(table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", table, model.ErrNotFound)
	}
	return nil
}
