package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// IndexStore is the harvest-facing document index.
type IndexStore struct {
	db *sqlx.DB
}

const indexCols = `id, document_id, template_id, status, last_modified`

// ByDocument returns the entry for a document id.
func (s *IndexStore) ByDocument(ctx context.Context, documentID string) (model.IndexEntry, error) {
	var e model.IndexEntry
	err := s.db.GetContext(ctx, &e,
		`SELECT `+indexCols+` FROM oai_record_index WHERE document_id = ?`, documentID)
	return e, wrap("oai_record_index", err)
}

// Find returns one page of entries whose template is in q.TemplateIDs and
// whose last_modified lies in [q.From, q.Until], ordered by entry id, plus
// the total match count.  Tombstones are included.
func (s *IndexStore) Find(ctx context.Context, q model.EntryQuery) (model.EntryPage, error) {
	var page model.EntryPage
	if len(q.TemplateIDs) == 0 {
		return page, nil
	}

	where, args := `template_id IN (?)`, []any{q.TemplateIDs}
	if q.From != nil {
		where += ` AND last_modified >= ?`
		args = append(args, *q.From)
	}
	if q.Until != nil {
		where += ` AND last_modified <= ?`
		args = append(args, *q.Until)
	}

	cq, cargs, err := sqlx.In(`SELECT COUNT(*) FROM oai_record_index WHERE `+where, args...)
	if err != nil {
		return page, wrap("oai_record_index", err)
	}
	if err := s.db.GetContext(ctx, &page.Total, s.db.Rebind(cq), cargs...); err != nil {
		return page, wrap("oai_record_index", err)
	}
	if page.Total == 0 || q.Offset >= page.Total {
		return page, nil
	}

	sq, sargs, err := sqlx.In(
		`SELECT `+indexCols+` FROM oai_record_index WHERE `+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return page, wrap("oai_record_index", err)
	}
	err = s.db.SelectContext(ctx, &page.Entries, s.db.Rebind(sq), sargs...)
	return page, wrap("oai_record_index", err)
}

// Earliest returns the oldest last_modified, or ok == false for an empty
// index.
func (s *IndexStore) Earliest(ctx context.Context) (time.Time, bool, error) {
	var t sql.NullTime
	if err := s.db.GetContext(ctx, &t,
		`SELECT MIN(last_modified) FROM oai_record_index`); err != nil {
		return time.Time{}, false, wrap("oai_record_index", err)
	}
	return t.Time, t.Valid, nil
}

// Upsert records a document as active under templateID at time at.
func (s *IndexStore) Upsert(ctx context.Context, documentID string, templateID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oai_record_index (document_id, template_id, status, last_modified) VALUES (?, ?, 'active', ?) ON DUPLICATE KEY UPDATE template_id = VALUES(template_id), status = 'active', last_modified = VALUES(last_modified)`,
		documentID, templateID, at)
	return wrap("oai_record_index", err)
}

// MarkDeleted turns an active entry into a tombstone.  It reports whether
// an entry changed; entries already deleted or never indexed are left
// alone.
func (s *IndexStore) MarkDeleted(ctx context.Context, documentID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE oai_record_index SET status = 'deleted', last_modified = ? WHERE document_id = ? AND status = 'active'`,
		at, documentID)
	if err != nil {
		return false, wrap("oai_record_index", err)
	}
	n, err := res.RowsAffected()
	return n > 0, wrap("oai_record_index", err)
}

// ActiveDocumentIDs lists every document currently indexed as active.
func (s *IndexStore) ActiveDocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT document_id FROM oai_record_index WHERE status = 'active' ORDER BY document_id`)
	return ids, wrap("oai_record_index", err)
}
