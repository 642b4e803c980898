package store

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// DocumentStore is the underlying document store.  Every successful write
// is announced to the subscribed observers, synchronously and in
// subscription order, after the row is committed.
type DocumentStore struct {
	db *sqlx.DB

	mu        sync.RWMutex
	observers []model.DocumentObserver
}

const documentCols = `id, template_id, title, xml_content, is_public, updated_at`

// Subscribe registers o for save and delete notifications.
func (s *DocumentStore) Subscribe(o model.DocumentObserver) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Get fetches one document.
func (s *DocumentStore) Get(ctx context.Context, id string) (model.Document, error) {
	var d model.Document
	err := s.db.GetContext(ctx, &d,
		`SELECT `+documentCols+` FROM document WHERE id = ?`, id)
	return d, wrap("document", err)
}

// ListPublic returns public documents of the given templates changed within
// [from, until].  A nil bound is open; an empty template list matches
// nothing.
func (s *DocumentStore) ListPublic(ctx context.Context, templateIDs []int64, from, until *time.Time) ([]model.Document, error) {
	if len(templateIDs) == 0 {
		return nil, nil
	}
	where, args := `is_public = 1 AND template_id IN (?)`, []any{templateIDs}
	if from != nil {
		where += ` AND updated_at >= ?`
		args = append(args, *from)
	}
	if until != nil {
		where += ` AND updated_at <= ?`
		args = append(args, *until)
	}
	q, qargs, err := sqlx.In(`SELECT `+documentCols+` FROM document WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, wrap("document", err)
	}
	var out []model.Document
	err = s.db.SelectContext(ctx, &out, s.db.Rebind(q), qargs...)
	return out, wrap("document", err)
}

// Save inserts or replaces doc, stamps UpdatedAt, and notifies observers.
func (s *DocumentStore) Save(ctx context.Context, doc model.Document) (model.Document, error) {
	doc.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document (id, template_id, title, xml_content, is_public, updated_at) VALUES (?, ?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE template_id = VALUES(template_id), title = VALUES(title), xml_content = VALUES(xml_content), is_public = VALUES(is_public), updated_at = VALUES(updated_at)`,
		doc.ID, doc.TemplateID, doc.Title, doc.XML, doc.Public, doc.UpdatedAt)
	if err != nil {
		return doc, wrap("document", err)
	}
	for _, o := range s.snapshot() {
		o.OnDocumentSaved(ctx, doc)
	}
	return doc, nil
}

// Delete removes a document and notifies observers with its last state.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM document WHERE id = ?`, id)
	if err := affected("document", res, err); err != nil {
		return err
	}
	for _, o := range s.snapshot() {
		o.OnDocumentDeleted(ctx, doc)
	}
	return nil
}

func (s *DocumentStore) snapshot() []model.DocumentObserver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.DocumentObserver(nil), s.observers...)
}
