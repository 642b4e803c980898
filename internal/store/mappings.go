package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// MappingStore is the (template, format) → stylesheet table.
type MappingStore struct {
	db *sqlx.DB
}

const mappingCols = `id, template_id, format_id, stylesheet_id`

// Find returns the mapping for one (template, format) pair.
func (s *MappingStore) Find(ctx context.Context, templateID, formatID int64) (model.FormatMapping, error) {
	var m model.FormatMapping
	err := s.db.GetContext(ctx, &m,
		`SELECT `+mappingCols+` FROM oai_format_mapping WHERE template_id = ? AND format_id = ?`,
		templateID, formatID)
	return m, wrap("oai_format_mapping", err)
}

// TemplatesForFormat lists every template with a mapping into formatID,
// ascending.
func (s *MappingStore) TemplatesForFormat(ctx context.Context, formatID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT template_id FROM oai_format_mapping WHERE format_id = ? ORDER BY template_id`, formatID)
	return ids, wrap("oai_format_mapping", err)
}

// FormatsForTemplate lists the formats templateID is mapped into.
func (s *MappingStore) FormatsForTemplate(ctx context.Context, templateID int64) ([]model.MetadataFormat, error) {
	var out []model.MetadataFormat
	err := s.db.SelectContext(ctx, &out,
		`SELECT f.id, f.prefix, f.namespace, f.schema_url, f.schema_content, f.kind, f.owner_template_id, f.created_at FROM oai_metadata_format f JOIN oai_format_mapping m ON m.format_id = f.id WHERE m.template_id = ? ORDER BY f.prefix`,
		templateID)
	return out, wrap("oai_format_mapping", err)
}

// List returns every mapping.
func (s *MappingStore) List(ctx context.Context) ([]model.FormatMapping, error) {
	var out []model.FormatMapping
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+mappingCols+` FROM oai_format_mapping ORDER BY template_id, format_id`)
	return out, wrap("oai_format_mapping", err)
}

// Create adds a mapping.  Mapping onto a template-derived format is
// ErrConflict; a second mapping for the same pair is ErrDuplicate.
func (s *MappingStore) Create(ctx context.Context, m model.FormatMapping) (model.FormatMapping, error) {
	var kind model.FormatKind
	if err := s.db.GetContext(ctx, &kind,
		`SELECT kind FROM oai_metadata_format WHERE id = ?`, m.FormatID); err != nil {
		return m, wrap("oai_metadata_format", err)
	}
	if kind == model.FormatTemplate {
		return m, fmt.Errorf("oai_format_mapping: format %d is template-derived: %w",
			m.FormatID, model.ErrConflict)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO oai_format_mapping (template_id, format_id, stylesheet_id) VALUES (?, ?, ?)`,
		m.TemplateID, m.FormatID, m.StylesheetID)
	if err != nil {
		return m, wrap("oai_format_mapping", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return m, wrap("oai_format_mapping", err)
	}
	return m, nil
}

// Delete removes one mapping.
func (s *MappingStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oai_format_mapping WHERE id = ?`, id)
	return affected("oai_format_mapping", res, err)
}
