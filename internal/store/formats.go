package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// FormatStore is the metadata format registry.
type FormatStore struct {
	db *sqlx.DB
}

const formatCols = `id, prefix, namespace, schema_url, schema_content, kind, owner_template_id, created_at`

// ByPrefix resolves a metadataPrefix.
func (s *FormatStore) ByPrefix(ctx context.Context, prefix string) (model.MetadataFormat, error) {
	var f model.MetadataFormat
	err := s.db.GetContext(ctx, &f,
		`SELECT `+formatCols+` FROM oai_metadata_format WHERE prefix = ?`, prefix)
	return f, wrap("oai_metadata_format", err)
}

// ByID fetches one format.
func (s *FormatStore) ByID(ctx context.Context, id int64) (model.MetadataFormat, error) {
	var f model.MetadataFormat
	err := s.db.GetContext(ctx, &f,
		`SELECT `+formatCols+` FROM oai_metadata_format WHERE id = ?`, id)
	return f, wrap("oai_metadata_format", err)
}

// All lists every registered format ordered by prefix.
func (s *FormatStore) All(ctx context.Context) ([]model.MetadataFormat, error) {
	var out []model.MetadataFormat
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+formatCols+` FROM oai_metadata_format ORDER BY prefix`)
	return out, wrap("oai_metadata_format", err)
}

// DerivedForTemplate returns the template-derived format owned by
// templateID, or ErrNotFound.
func (s *FormatStore) DerivedForTemplate(ctx context.Context, templateID int64) (model.MetadataFormat, error) {
	var f model.MetadataFormat
	err := s.db.GetContext(ctx, &f,
		`SELECT `+formatCols+` FROM oai_metadata_format WHERE kind = 'template' AND owner_template_id = ?`, templateID)
	return f, wrap("oai_metadata_format", err)
}

// Create inserts f and returns it with ID and CreatedAt filled.  The kind
// and owner must agree; a clash is ErrConflict, a taken prefix
// ErrDuplicate.
func (s *FormatStore) Create(ctx context.Context, f model.MetadataFormat) (model.MetadataFormat, error) {
	if !f.Kind.Valid() || (f.Kind == model.FormatTemplate) != (f.OwnerTemplateID != nil) {
		return f, fmt.Errorf("oai_metadata_format: kind %q with owner %v: %w",
			f.Kind, f.OwnerTemplateID, model.ErrConflict)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO oai_metadata_format (prefix, namespace, schema_url, schema_content, kind, owner_template_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.Prefix, f.Namespace, f.SchemaURL, f.SchemaContent, f.Kind, f.OwnerTemplateID, f.CreatedAt)
	if err != nil {
		return f, wrap("oai_metadata_format", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return f, wrap("oai_metadata_format", err)
	}
	return f, nil
}

// Rename changes the prefix, the only mutable attribute.
func (s *FormatStore) Rename(ctx context.Context, id int64, prefix string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE oai_metadata_format SET prefix = ? WHERE id = ?`, prefix, id)
	return affected("oai_metadata_format", res, err)
}

// Delete removes a format; its mappings cascade.
func (s *FormatStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM oai_metadata_format WHERE id = ?`, id)
	return affected("oai_metadata_format", res, err)
}
