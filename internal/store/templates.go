package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// TemplateStore reads content templates (schema versions).
type TemplateStore struct {
	db *sqlx.DB
}

const templateCols = `id, title, version_group_id, version_number, content`

// Get fetches one template version.
func (s *TemplateStore) Get(ctx context.Context, id int64) (model.Template, error) {
	var t model.Template
	err := s.db.GetContext(ctx, &t,
		`SELECT `+templateCols+` FROM template WHERE id = ?`, id)
	return t, wrap("template", err)
}

// IDsInGroups expands version groups to every template version id in them.
func (s *TemplateStore) IDsInGroups(ctx context.Context, groups []int64) ([]int64, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(
		`SELECT id FROM template WHERE version_group_id IN (?) ORDER BY id`, groups)
	if err != nil {
		return nil, wrap("template", err)
	}
	var ids []int64
	err = s.db.SelectContext(ctx, &ids, s.db.Rebind(q), args...)
	return ids, wrap("template", err)
}

// List returns every template version without content.
func (s *TemplateStore) List(ctx context.Context) ([]model.Template, error) {
	var out []model.Template
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, title, version_group_id, version_number, '' AS content FROM template ORDER BY version_group_id, version_number`)
	return out, wrap("template", err)
}

// Create inserts a template version.  A zero VersionGroupID starts a new
// group keyed by the new row's id.
func (s *TemplateStore) Create(ctx context.Context, t model.Template) (model.Template, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return t, wrap("template", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO template (title, version_group_id, version_number, content) VALUES (?, ?, ?, ?)`,
		t.Title, t.VersionGroupID, t.VersionNumber, t.Content)
	if err != nil {
		return t, wrap("template", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return t, wrap("template", err)
	}
	if t.VersionGroupID == 0 {
		t.VersionGroupID = t.ID
		if _, err := tx.ExecContext(ctx,
			`UPDATE template SET version_group_id = ? WHERE id = ?`, t.ID, t.ID); err != nil {
			return t, wrap("template", err)
		}
	}
	return t, wrap("template", tx.Commit())
}
