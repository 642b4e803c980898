// internal/store/store_test.go
//
// Unit-tests for the registries using sqlmock.
//
// Run: go test ./internal/store -v

package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/oairepo/internal/model"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
		db.Close()
	})
	return New(sqlx.NewDb(db, "mysql")), mock
}

var ctx = context.Background()

/*──────────────────────────── settings ─────────────────────────────────────*/

func TestSettingsGet_NotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM oai_settings WHERE id = 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"repository_name"}))

	_, err := s.Settings.Get(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSettingsInit_ReportsCreation(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT IGNORE INTO oai_settings`)).
		WithArgs("Repo", "repo.example.org", "a@example.org", true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT IGNORE INTO oai_settings`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	v := model.Settings{Name: "Repo", Identifier: "repo.example.org", AdminEmail: "a@example.org", HarvestingEnabled: true}
	created, err := s.Settings.Init(ctx, v)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Settings.Init(ctx, v)
	require.NoError(t, err)
	assert.False(t, created)
}

/*──────────────────────────── formats ──────────────────────────────────────*/

var formatColumns = []string{"id", "prefix", "namespace", "schema_url", "schema_content", "kind", "owner_template_id", "created_at"}

func TestFormatByPrefix(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM oai_metadata_format WHERE prefix = ?`)).
		WithArgs("tpl_article").
		WillReturnRows(sqlmock.NewRows(formatColumns).
			AddRow(3, "tpl_article", "urn:article", "", "<xs:schema/>", "template", 7, now))

	f, err := s.Formats.ByPrefix(ctx, "tpl_article")
	require.NoError(t, err)
	assert.True(t, f.IsTemplateDerived())
	assert.True(t, f.OwnedBy(7))
	assert.False(t, f.OwnedBy(8))
}

func TestFormatCreate_KindOwnerMismatch(t *testing.T) {
	s, _ := newMock(t)
	owner := int64(4)

	_, err := s.Formats.Create(ctx, model.MetadataFormat{Prefix: "x", Kind: model.FormatCustom, OwnerTemplateID: &owner})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = s.Formats.Create(ctx, model.MetadataFormat{Prefix: "y", Kind: model.FormatTemplate})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = s.Formats.Create(ctx, model.MetadataFormat{Prefix: "z", Kind: "bogus"})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestFormatCreate_DuplicatePrefix(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oai_metadata_format`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'oai_dc'"})

	_, err := s.Formats.Create(ctx, model.MetadataFormat{Prefix: "oai_dc", Kind: model.FormatDefault})
	assert.ErrorIs(t, err, model.ErrDuplicate)
}

func TestFormatRename_Missing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE oai_metadata_format SET prefix = ? WHERE id = ?`)).
		WithArgs("new", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.Formats.Rename(ctx, 99, "new"), model.ErrNotFound)
}

/*──────────────────────────── sets ─────────────────────────────────────────*/

func TestSetsAll_AttachesGroups(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM oai_set ORDER BY set_spec`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "set_spec", "set_name", "description"}).
			AddRow(2, "articles", "Articles", "").
			AddRow(1, "books", "Books", "All books"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT set_id, group_id FROM oai_set_template_group`)).
		WillReturnRows(sqlmock.NewRows([]string{"set_id", "group_id"}).
			AddRow(1, 10).AddRow(1, 11).AddRow(2, 20))

	sets, err := s.Sets.All(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "articles", sets[0].Spec)
	assert.Equal(t, []int64{20}, sets[0].TemplateGroups)
	assert.Equal(t, []int64{10, 11}, sets[1].TemplateGroups)
}

func TestSetsSpecsForTemplates(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE t.id IN (?, ?) ORDER BY t.id, s.set_spec`)).
		WithArgs(int64(5), int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"template_id", "set_spec"}).
			AddRow(5, "articles").AddRow(5, "open").AddRow(6, "books"))

	got, err := s.Sets.SpecsForTemplates(ctx, []int64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, map[int64][]string{5: {"articles", "open"}, 6: {"books"}}, got)
}

func TestSetsCreate_Transaction(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oai_set (set_spec, set_name, description)`)).
		WithArgs("books", "Books", "").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oai_set_template_group (set_id, group_id)`)).
		WithArgs(int64(9), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	set, err := s.Sets.Create(ctx, model.Set{Spec: "books", Name: "Books", TemplateGroups: []int64{10}})
	require.NoError(t, err)
	assert.Equal(t, int64(9), set.ID)
}

/*──────────────────────────── mappings + templates ─────────────────────────*/

func TestMappingCreate_RejectsTemplateDerived(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT kind FROM oai_metadata_format WHERE id = ?`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("template"))

	_, err := s.Mappings.Create(ctx, model.FormatMapping{TemplateID: 1, FormatID: 3, StylesheetID: 2})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestMappingCreate_OK(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT kind FROM oai_metadata_format WHERE id = ?`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("default"))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oai_format_mapping`)).
		WithArgs(int64(4), int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(12, 1))

	m, err := s.Mappings.Create(ctx, model.FormatMapping{TemplateID: 4, FormatID: 1, StylesheetID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(12), m.ID)
}

func TestTemplatesIDsInGroups(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM template WHERE version_group_id IN (?, ?) ORDER BY id`)).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(3).AddRow(4))

	ids, err := s.Templates.IDsInGroups(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, ids)

	ids, err = s.Templates.IDsInGroups(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStylesheetUpdate(t *testing.T) {
	s, mock := newMock(t)
	q := regexp.QuoteMeta(`UPDATE xslt_stylesheet SET name = ?, content = ? WHERE id = ?`)
	mock.ExpectExec(q).WithArgs("dc", "<xsl:stylesheet/>", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("dc", "<xsl:stylesheet/>", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Stylesheets.Update(ctx, model.Stylesheet{ID: 2, Name: "dc", Content: "<xsl:stylesheet/>"}))
	err := s.Stylesheets.Update(ctx, model.Stylesheet{ID: 9, Name: "dc", Content: "<xsl:stylesheet/>"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

/*──────────────────────────── documents ────────────────────────────────────*/

type recorder struct {
	saved, deleted []string
}

func (r *recorder) OnDocumentSaved(_ context.Context, d model.Document) { r.saved = append(r.saved, d.ID) }
func (r *recorder) OnDocumentDeleted(_ context.Context, d model.Document) { r.deleted = append(r.deleted, d.ID) }

func TestDocumentSave_NotifiesObservers(t *testing.T) {
	s, mock := newMock(t)
	rec := &recorder{}
	s.Documents.Subscribe(rec)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO document`)).
		WithArgs("d1", int64(4), "Title", "<a/>", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := s.Documents.Save(ctx, model.Document{ID: "d1", TemplateID: 4, Title: "Title", XML: "<a/>", Public: true})
	require.NoError(t, err)
	assert.False(t, doc.UpdatedAt.IsZero())
	assert.Equal(t, []string{"d1"}, rec.saved)
}

func TestDocumentSave_FailureSkipsObservers(t *testing.T) {
	s, mock := newMock(t)
	rec := &recorder{}
	s.Documents.Subscribe(rec)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO document`)).WillReturnError(errors.New("disk full"))

	_, err := s.Documents.Save(ctx, model.Document{ID: "d1"})
	assert.Error(t, err)
	assert.Empty(t, rec.saved)
}

func TestDocumentDelete_NotifiesObservers(t *testing.T) {
	s, mock := newMock(t)
	rec := &recorder{}
	s.Documents.Subscribe(rec)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM document WHERE id = ?`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "template_id", "title", "xml_content", "is_public", "updated_at"}).
			AddRow("d1", 4, "T", "<a/>", true, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM document WHERE id = ?`)).
		WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Documents.Delete(ctx, "d1"))
	assert.Equal(t, []string{"d1"}, rec.deleted)
}

func TestDocumentListPublic_DateBounds(t *testing.T) {
	s, mock := newMock(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE is_public = 1 AND template_id IN (?) AND updated_at >= ? ORDER BY id`)).
		WithArgs(int64(4), from).
		WillReturnRows(sqlmock.NewRows([]string{"id", "template_id", "title", "xml_content", "is_public", "updated_at"}))

	docs, err := s.Documents.ListPublic(ctx, []int64{4}, &from, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

/*──────────────────────────── index ────────────────────────────────────────*/

func TestIndexFind_CountThenPage(t *testing.T) {
	s, mock := newMock(t)
	until := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM oai_record_index WHERE template_id IN (?, ?) AND last_modified <= ?`)).
		WithArgs(int64(1), int64(2), until).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id LIMIT ? OFFSET ?`)).
		WithArgs(int64(1), int64(2), until, 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "template_id", "status", "last_modified"}).
			AddRow(30, "d3", 2, "deleted", until))

	page, err := s.Index.Find(ctx, model.EntryQuery{TemplateIDs: []int64{1, 2}, Until: &until, Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Entries, 1)
	assert.True(t, page.Entries[0].Deleted())
}

func TestIndexFind_NoTemplatesNoQuery(t *testing.T) {
	s, _ := newMock(t)
	page, err := s.Index.Find(ctx, model.EntryQuery{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestIndexFind_OffsetPastEnd(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM oai_record_index`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	page, err := s.Index.Find(ctx, model.EntryQuery{TemplateIDs: []int64{1}, Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Empty(t, page.Entries)
}

func TestIndexEarliest_Empty(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MIN(last_modified) FROM oai_record_index`)).
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(nil))

	_, ok, err := s.Index.Earliest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexMarkDeleted(t *testing.T) {
	s, mock := newMock(t)
	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE oai_record_index SET status = 'deleted', last_modified = ? WHERE document_id = ? AND status = 'active'`)).
		WithArgs(at, "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := s.Index.MarkDeleted(ctx, "d1", at)
	require.NoError(t, err)
	assert.True(t, changed)
}

/*──────────────────────────── tokens ───────────────────────────────────────*/

func TestTokenInsert_Collision(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oai_resumption_page`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := s.Tokens.Insert(ctx, model.ResumptionPage{Token: "abc", TemplateIDs: []int64{1}})
	assert.ErrorIs(t, err, model.ErrDuplicate)
}

func TestTokenInsert_EncodesTemplateIDs(t *testing.T) {
	s, mock := newMock(t)
	exp := time.Now().UTC().Add(time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oai_resumption_page`)).
		WithArgs("abc", "[1,2]", "oai_dc", nil, nil, nil, 2, exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Tokens.Insert(ctx, model.ResumptionPage{
		Token: "abc", TemplateIDs: []int64{1, 2}, MetadataPrefix: "oai_dc", PageNumber: 2, ExpiresAt: exp,
	}))
}

func TestTokenGet_DecodesRow(t *testing.T) {
	s, mock := newMock(t)
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM oai_resumption_page WHERE token = ?`)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"token", "template_ids", "metadata_prefix", "set_spec", "from_date", "until_date", "page_number", "expires_at"}).
			AddRow("abc", "[3,5]", "oai_dc", "books", nil, nil, 2, exp))

	p, err := s.Tokens.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, p.TemplateIDs)
	require.NotNil(t, p.SetSpec)
	assert.Equal(t, "books", *p.SetSpec)
	assert.Nil(t, p.From)
	assert.Equal(t, 2, p.PageNumber)
	assert.False(t, p.Expired(exp.Add(-time.Second)))
	assert.True(t, p.Expired(exp.Add(time.Second)))
}

func TestTokenGet_Unknown(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM oai_resumption_page WHERE token = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"token"}))

	_, err := s.Tokens.Get(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
