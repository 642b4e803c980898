package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// StylesheetStore holds XSLT resources referenced by mappings.
type StylesheetStore struct {
	db *sqlx.DB
}

// Get fetches one stylesheet including its content.
func (s *StylesheetStore) Get(ctx context.Context, id int64) (model.Stylesheet, error) {
	var out model.Stylesheet
	err := s.db.GetContext(ctx, &out,
		`SELECT id, name, content FROM xslt_stylesheet WHERE id = ?`, id)
	return out, wrap("xslt_stylesheet", err)
}

// List returns every stylesheet without content.
func (s *StylesheetStore) List(ctx context.Context) ([]model.Stylesheet, error) {
	var out []model.Stylesheet
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, name, '' AS content FROM xslt_stylesheet ORDER BY name`)
	return out, wrap("xslt_stylesheet", err)
}

// Create stores a stylesheet; names are unique.
func (s *StylesheetStore) Create(ctx context.Context, sh model.Stylesheet) (model.Stylesheet, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO xslt_stylesheet (name, content) VALUES (?, ?)`, sh.Name, sh.Content)
	if err != nil {
		return sh, wrap("xslt_stylesheet", err)
	}
	if sh.ID, err = res.LastInsertId(); err != nil {
		return sh, wrap("xslt_stylesheet", err)
	}
	return sh, nil
}

// Update replaces a stylesheet's name and content.
func (s *StylesheetStore) Update(ctx context.Context, sh model.Stylesheet) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE xslt_stylesheet SET name = ?, content = ? WHERE id = ?`, sh.Name, sh.Content, sh.ID)
	return affected("xslt_stylesheet", res, err)
}
