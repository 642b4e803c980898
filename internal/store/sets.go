package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// SetStore is the set registry.  Membership is stored per template version
// group in oai_set_template_group.
type SetStore struct {
	db *sqlx.DB
}

const setCols = `id, set_spec, set_name, description`

type setGroupRow struct {
	SetID   int64 `db:"set_id"`
	GroupID int64 `db:"group_id"`
}

// All returns every set ordered by setSpec, memberships included.
func (s *SetStore) All(ctx context.Context) ([]model.Set, error) {
	var sets []model.Set
	if err := s.db.SelectContext(ctx, &sets,
		`SELECT `+setCols+` FROM oai_set ORDER BY set_spec`); err != nil {
		return nil, wrap("oai_set", err)
	}
	if len(sets) == 0 {
		return sets, nil
	}

	var rows []setGroupRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT set_id, group_id FROM oai_set_template_group ORDER BY set_id, group_id`); err != nil {
		return nil, wrap("oai_set_template_group", err)
	}
	byID := make(map[int64][]int64, len(sets))
	for _, r := range rows {
		byID[r.SetID] = append(byID[r.SetID], r.GroupID)
	}
	for i := range sets {
		sets[i].TemplateGroups = byID[sets[i].ID]
	}
	return sets, nil
}

// BySpec resolves one set with its template groups.
func (s *SetStore) BySpec(ctx context.Context, spec string) (model.Set, error) {
	var set model.Set
	if err := s.db.GetContext(ctx, &set,
		`SELECT `+setCols+` FROM oai_set WHERE set_spec = ?`, spec); err != nil {
		return set, wrap("oai_set", err)
	}
	if err := s.db.SelectContext(ctx, &set.TemplateGroups,
		`SELECT group_id FROM oai_set_template_group WHERE set_id = ? ORDER BY group_id`, set.ID); err != nil {
		return set, wrap("oai_set_template_group", err)
	}
	return set, nil
}

// SpecsForTemplates maps each template id to the setSpecs whose groups
// contain that template's version group.  Templates in no set are absent
// from the result.
func (s *SetStore) SpecsForTemplates(ctx context.Context, templateIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(templateIDs))
	if len(templateIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(
		`SELECT t.id AS template_id, s.set_spec FROM template t JOIN oai_set_template_group g ON g.group_id = t.version_group_id JOIN oai_set s ON s.id = g.set_id WHERE t.id IN (?) ORDER BY t.id, s.set_spec`,
		templateIDs)
	if err != nil {
		return nil, wrap("oai_set", err)
	}
	var rows []struct {
		TemplateID int64  `db:"template_id"`
		Spec       string `db:"set_spec"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, wrap("oai_set", err)
	}
	for _, r := range rows {
		out[r.TemplateID] = append(out[r.TemplateID], r.Spec)
	}
	return out, nil
}

// Create inserts a set and its memberships in one transaction.
func (s *SetStore) Create(ctx context.Context, set model.Set) (model.Set, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return set, wrap("oai_set", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO oai_set (set_spec, set_name, description) VALUES (?, ?, ?)`,
		set.Spec, set.Name, set.Description)
	if err != nil {
		return set, wrap("oai_set", err)
	}
	if set.ID, err = res.LastInsertId(); err != nil {
		return set, wrap("oai_set", err)
	}
	if err := insertGroups(ctx, tx, set.ID, set.TemplateGroups); err != nil {
		return set, err
	}
	return set, wrap("oai_set", tx.Commit())
}

// Update rewrites name, description, and membership of the set with
// set.ID.  The setSpec may change too.
func (s *SetStore) Update(ctx context.Context, set model.Set) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("oai_set", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE oai_set SET set_spec = ?, set_name = ?, description = ? WHERE id = ?`,
		set.Spec, set.Name, set.Description, set.ID)
	if err := affected("oai_set", res, err); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM oai_set_template_group WHERE set_id = ?`, set.ID); err != nil {
		return wrap("oai_set_template_group", err)
	}
	if err := insertGroups(ctx, tx, set.ID, set.TemplateGroups); err != nil {
		return err
	}
	return wrap("oai_set", tx.Commit())
}

// Delete removes a set; memberships cascade.
func (s *SetStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oai_set WHERE id = ?`, id)
	return affected("oai_set", res, err)
}

func insertGroups(ctx context.Context, tx *sqlx.Tx, setID int64, groups []int64) error {
	for _, g := range groups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oai_set_template_group (set_id, group_id) VALUES (?, ?)`, setID, g); err != nil {
			return wrap("oai_set_template_group", err)
		}
	}
	return nil
}
