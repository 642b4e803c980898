package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/oairepo/internal/model"
)

type memIndex struct {
	entries map[string]model.IndexEntry
	err     error
	panic   bool
}

func newMemIndex() *memIndex { return &memIndex{entries: map[string]model.IndexEntry{}} }

func (m *memIndex) ByDocument(_ context.Context, id string) (model.IndexEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return e, model.ErrNotFound
	}
	return e, nil
}

func (m *memIndex) Upsert(_ context.Context, id string, tpl int64, at time.Time) error {
	if m.panic {
		panic("boom")
	}
	if m.err != nil {
		return m.err
	}
	m.entries[id] = model.IndexEntry{DocumentID: id, TemplateID: tpl, Status: model.StatusActive, LastModified: at}
	return nil
}

func (m *memIndex) MarkDeleted(_ context.Context, id string, at time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	e, ok := m.entries[id]
	if !ok || e.Deleted() {
		return false, nil
	}
	e.Status, e.LastModified = model.StatusDeleted, at
	m.entries[id] = e
	return true, nil
}

func (m *memIndex) ActiveDocumentIDs(context.Context) ([]string, error) {
	var out []string
	for id, e := range m.entries {
		if !e.Deleted() {
			out = append(out, id)
		}
	}
	return out, nil
}

type memDocs []model.Document

func (d memDocs) ListPublic(_ context.Context, tpls []int64, _, _ *time.Time) ([]model.Document, error) {
	var out []model.Document
	for _, doc := range d {
		for _, t := range tpls {
			if doc.Public && doc.TemplateID == t {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

type memTemplates []model.Template

func (t memTemplates) List(context.Context) ([]model.Template, error) { return t, nil }

var fixed = time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)

func newMaintainer(idx *memIndex, docs memDocs) (*Maintainer, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	m := New(idx, docs, memTemplates{{ID: 1}, {ID: 2}}, zap.New(core).Sugar())
	m.now = func() time.Time { return fixed }
	return m, logs
}

func TestOnDocumentSaved_PublicIndexes(t *testing.T) {
	idx := newMemIndex()
	m, _ := newMaintainer(idx, nil)

	m.OnDocumentSaved(context.Background(), model.Document{ID: "d1", TemplateID: 1, Public: true})

	e := idx.entries["d1"]
	assert.Equal(t, model.StatusActive, e.Status)
	assert.Equal(t, fixed.Truncate(time.Second), e.LastModified)
}

func TestOnDocumentSaved_PrivateTombstones(t *testing.T) {
	idx := newMemIndex()
	idx.entries["d1"] = model.IndexEntry{DocumentID: "d1", TemplateID: 1, Status: model.StatusActive}
	m, _ := newMaintainer(idx, nil)

	m.OnDocumentSaved(context.Background(), model.Document{ID: "d1", TemplateID: 1, Public: false})
	assert.True(t, idx.entries["d1"].Deleted())

	// Never-public documents stay out of the index.
	m.OnDocumentSaved(context.Background(), model.Document{ID: "d2", TemplateID: 1})
	_, ok := idx.entries["d2"]
	assert.False(t, ok)
}

func TestOnDocumentDeleted_Tombstones(t *testing.T) {
	idx := newMemIndex()
	idx.entries["d1"] = model.IndexEntry{DocumentID: "d1", TemplateID: 1, Status: model.StatusActive}
	m, _ := newMaintainer(idx, nil)

	m.OnDocumentDeleted(context.Background(), model.Document{ID: "d1"})
	e := idx.entries["d1"]
	assert.True(t, e.Deleted())
	assert.Equal(t, "d1", e.DocumentID)
}

func TestHooks_NeverPropagateFailures(t *testing.T) {
	idx := newMemIndex()
	idx.err = errors.New("db down")
	m, logs := newMaintainer(idx, nil)

	assert.NotPanics(t, func() {
		m.OnDocumentSaved(context.Background(), model.Document{ID: "d1", Public: true})
		m.OnDocumentDeleted(context.Background(), model.Document{ID: "d1"})
	})
	assert.Equal(t, 2, logs.FilterMessage("index update failed").Len())

	idx.err, idx.panic = nil, true
	assert.NotPanics(t, func() {
		m.OnDocumentSaved(context.Background(), model.Document{ID: "d1", Public: true})
	})
	assert.Equal(t, 1, logs.FilterMessage("index update panicked").Len())
}

func TestSync_Reconciles(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx := newMemIndex()
	idx.entries["fresh"] = model.IndexEntry{DocumentID: "fresh", TemplateID: 1, Status: model.StatusActive, LastModified: old}
	idx.entries["gone"] = model.IndexEntry{DocumentID: "gone", TemplateID: 1, Status: model.StatusActive, LastModified: old}
	idx.entries["back"] = model.IndexEntry{DocumentID: "back", TemplateID: 2, Status: model.StatusDeleted, LastModified: old}

	docs := memDocs{
		{ID: "fresh", TemplateID: 1, Public: true, UpdatedAt: old},
		{ID: "new", TemplateID: 2, Public: true, UpdatedAt: old},
		{ID: "back", TemplateID: 2, Public: true, UpdatedAt: old},
		{ID: "private", TemplateID: 1, Public: false, UpdatedAt: old},
	}
	m, _ := newMaintainer(idx, docs)

	rep, err := m.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Indexed: 2, Tombstoned: 1}, rep)

	assert.Equal(t, old, idx.entries["fresh"].LastModified, "up-to-date entry untouched")
	assert.Equal(t, model.StatusActive, idx.entries["new"].Status)
	assert.Equal(t, model.StatusActive, idx.entries["back"].Status)
	assert.True(t, idx.entries["back"].LastModified.After(old))
	assert.True(t, idx.entries["gone"].Deleted())
	_, ok := idx.entries["private"]
	assert.False(t, ok)
}
