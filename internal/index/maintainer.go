// internal/index/maintainer.go
//
// Document index maintenance.
//
// Context
// -------
// The harvest-facing index (oai_record_index) mirrors every document that
// was ever public.  Maintainer keeps it current in two ways:
//
//   - As a model.DocumentObserver subscribed to the document store.  Each
//     save of a public document upserts an active entry; a save that makes
//     the document private, or a delete, turns the entry into a tombstone.
//     Hooks run synchronously inside the writer's call, but every failure
//     (including a panic) is logged and counted, never returned, so index
//     trouble can not fail the write that triggered it.
//   - Sync, a full reconciliation pass run at boot or from the admin API,
//     which repairs whatever a failed hook left behind.
//
// Notes
// -----
//   - last_modified is the time of the transition, truncated to whole
//     seconds to match the protocol's datestamp granularity.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/oairepo/internal/metrics"
	"github.com/yanizio/oairepo/internal/model"
)

// Store is the index persistence used by Maintainer.
type Store interface {
	ByDocument(ctx context.Context, documentID string) (model.IndexEntry, error)
	Upsert(ctx context.Context, documentID string, templateID int64, at time.Time) error
	MarkDeleted(ctx context.Context, documentID string, at time.Time) (bool, error)
	ActiveDocumentIDs(ctx context.Context) ([]string, error)
}

// Documents is the slice of the document store Sync needs.
type Documents interface {
	ListPublic(ctx context.Context, templateIDs []int64, from, until *time.Time) ([]model.Document, error)
}

// Templates lists every template version.
type Templates interface {
	List(ctx context.Context) ([]model.Template, error)
}

// Maintainer implements model.DocumentObserver.
type Maintainer struct {
	store     Store
	docs      Documents
	templates Templates
	log       *zap.SugaredLogger
	now       func() time.Time
}

// New returns a Maintainer.  docs and templates are only used by Sync.
func New(store Store, docs Documents, templates Templates, log *zap.SugaredLogger) *Maintainer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Maintainer{
		store:     store,
		docs:      docs,
		templates: templates,
		log:       log,
		now:       time.Now,
	}
}

var _ model.DocumentObserver = (*Maintainer)(nil)

func (m *Maintainer) stamp() time.Time { return m.now().UTC().Truncate(time.Second) }

// OnDocumentSaved indexes a public document or tombstones one that went
// private.
func (m *Maintainer) OnDocumentSaved(ctx context.Context, doc model.Document) {
	defer m.guard("saved", doc.ID)

	var err error
	if doc.Public {
		err = m.store.Upsert(ctx, doc.ID, doc.TemplateID, m.stamp())
	} else {
		_, err = m.store.MarkDeleted(ctx, doc.ID, m.stamp())
	}
	m.record("saved", doc.ID, err)
}

// OnDocumentDeleted tombstones the document's entry, if it has one.
func (m *Maintainer) OnDocumentDeleted(ctx context.Context, doc model.Document) {
	defer m.guard("deleted", doc.ID)

	_, err := m.store.MarkDeleted(ctx, doc.ID, m.stamp())
	m.record("deleted", doc.ID, err)
}

func (m *Maintainer) record(event, docID string, err error) {
	if err != nil {
		metrics.IndexUpdates.WithLabelValues(event, "error").Inc()
		m.log.Errorw("index update failed", "event", event, "document", docID, "err", err)
		return
	}
	metrics.IndexUpdates.WithLabelValues(event, "ok").Inc()
	m.log.Debugw("index updated", "event", event, "document", docID)
}

func (m *Maintainer) guard(event, docID string) {
	if r := recover(); r != nil {
		metrics.IndexUpdates.WithLabelValues(event, "panic").Inc()
		m.log.Errorw("index update panicked", "event", event, "document", docID, "panic", r)
	}
}

/*──────────────────────────── reconciliation ───────────────────────────────*/

// SyncReport summarises one Sync pass.
type SyncReport struct {
	Indexed    int `json:"indexed"`
	Tombstoned int `json:"tombstoned"`
}

// Sync makes the index agree with the document store: every public
// document gets an active entry (refreshed when the document changed after
// the entry), and every active entry whose document is no longer public
// becomes a tombstone.
func (m *Maintainer) Sync(ctx context.Context) (SyncReport, error) {
	var rep SyncReport

	tpls, err := m.templates.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("index sync: templates: %w", err)
	}
	ids := make([]int64, 0, len(tpls))
	for _, t := range tpls {
		ids = append(ids, t.ID)
	}
	docs, err := m.docs.ListPublic(ctx, ids, nil, nil)
	if err != nil {
		return rep, fmt.Errorf("index sync: documents: %w", err)
	}

	public := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		public[d.ID] = struct{}{}

		e, err := m.store.ByDocument(ctx, d.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
		case err != nil:
			return rep, fmt.Errorf("index sync: %s: %w", d.ID, err)
		case !e.Deleted() && e.TemplateID == d.TemplateID && !e.LastModified.Before(d.UpdatedAt):
			continue
		}
		at := d.UpdatedAt.UTC().Truncate(time.Second)
		if e.Deleted() {
			// A resurrected record must look newer than its tombstone.
			at = m.stamp()
		}
		if err := m.store.Upsert(ctx, d.ID, d.TemplateID, at); err != nil {
			return rep, fmt.Errorf("index sync: %s: %w", d.ID, err)
		}
		rep.Indexed++
	}

	active, err := m.store.ActiveDocumentIDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("index sync: active entries: %w", err)
	}
	for _, id := range active {
		if _, ok := public[id]; ok {
			continue
		}
		changed, err := m.store.MarkDeleted(ctx, id, m.stamp())
		if err != nil {
			return rep, fmt.Errorf("index sync: %s: %w", id, err)
		}
		if changed {
			rep.Tombstoned++
		}
	}

	m.log.Infow("index synced", "indexed", rep.Indexed, "tombstoned", rep.Tombstoned, "public", len(docs))
	return rep, nil
}
