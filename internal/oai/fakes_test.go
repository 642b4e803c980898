package oai

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanizio/oairepo/internal/model"
)

// world is an in-memory repository behind every engine collaborator.
type world struct {
	mu sync.Mutex

	settings   model.Settings
	formats    []model.MetadataFormat
	sets       []model.Set
	templates  []model.Template
	mappings   []model.FormatMapping
	entries    []model.IndexEntry
	docs       map[string]model.Document
	pages      map[string]model.ResumptionPage
	insertErrs []error
	transforms []int64
	transform  func(xml []byte, stylesheetID int64) ([]byte, error)
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func ptr[T any](v T) *T { return &v }

// newWorld builds the fixture used across the engine tests:
//
//	templates  1,2 = "Article" v1,v2 (group 1)   3 = "Dataset" (group 3)   4 = "Orphan" (group 4)
//	formats    oai_dc (default, mapped from 1,2,3)   article (native to 1)   marc (custom, unmapped)
//	sets       articles → group 1   data → group 3   empty → group 99
//	index      d1,d2 (t1)   d3 (t2, deleted)   d4 (t3)   d5 (t4), one day apart from Jan 1st
func newWorld() *world {
	w := &world{
		settings: model.Settings{
			Name:              "Test Repository",
			Identifier:        "repo.test",
			AdminEmail:        "admin@repo.test",
			HarvestingEnabled: true,
		},
		templates: []model.Template{
			{ID: 1, Title: "Article", VersionGroupID: 1, VersionNumber: 1},
			{ID: 2, Title: "Article", VersionGroupID: 1, VersionNumber: 2},
			{ID: 3, Title: "Dataset", VersionGroupID: 3, VersionNumber: 1},
			{ID: 4, Title: "Orphan", VersionGroupID: 4, VersionNumber: 1},
		},
		formats: []model.MetadataFormat{
			{ID: 10, Prefix: "oai_dc", Namespace: namespaceOAIDC, SchemaURL: "http://www.openarchives.org/OAI/2.0/oai_dc.xsd", Kind: model.FormatDefault},
			{ID: 11, Prefix: "article", Namespace: "urn:test:article", Kind: model.FormatTemplate, OwnerTemplateID: ptr(int64(1))},
			{ID: 12, Prefix: "marc", Namespace: "http://www.loc.gov/MARC21/slim", SchemaURL: "http://www.loc.gov/standards/marcxml/schema/MARC21slim.xsd", Kind: model.FormatCustom},
		},
		mappings: []model.FormatMapping{
			{ID: 1, TemplateID: 1, FormatID: 10, StylesheetID: 100},
			{ID: 2, TemplateID: 2, FormatID: 10, StylesheetID: 100},
			{ID: 3, TemplateID: 3, FormatID: 10, StylesheetID: 101},
		},
		sets: []model.Set{
			{ID: 2, Spec: "data", Name: "Datasets", TemplateGroups: []int64{3}},
			{ID: 1, Spec: "articles", Name: "Articles", Description: "Journal articles", TemplateGroups: []int64{1}},
			{ID: 3, Spec: "empty", Name: "Empty", TemplateGroups: []int64{99}},
		},
		entries: []model.IndexEntry{
			{ID: 1, DocumentID: "d1", TemplateID: 1, Status: model.StatusActive, LastModified: day(1)},
			{ID: 2, DocumentID: "d2", TemplateID: 1, Status: model.StatusActive, LastModified: day(2)},
			{ID: 3, DocumentID: "d3", TemplateID: 2, Status: model.StatusDeleted, LastModified: day(3)},
			{ID: 4, DocumentID: "d4", TemplateID: 3, Status: model.StatusActive, LastModified: day(4)},
			{ID: 5, DocumentID: "d5", TemplateID: 4, Status: model.StatusActive, LastModified: day(5)},
		},
		docs:  map[string]model.Document{},
		pages: map[string]model.ResumptionPage{},
	}
	for _, en := range w.entries {
		if en.Deleted() {
			continue
		}
		w.docs[en.DocumentID] = model.Document{
			ID:         en.DocumentID,
			TemplateID: en.TemplateID,
			XML:        fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+`<doc id="%s"/>`, en.DocumentID),
			Public:     true,
			UpdatedAt:  en.LastModified,
		}
	}
	w.transform = func(in []byte, id int64) ([]byte, error) {
		return []byte(fmt.Sprintf(`<?xml version="1.0"?><dc sheet="%d">%s</dc>`, id, in)), nil
	}
	return w
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, w *world, tune ...func(*Options)) *Engine {
	t.Helper()
	opt := Options{
		BaseURL:       "https://repo.test/oai",
		SchemaBaseURI: "https://repo.test/",
		PageSize:      10,
		TokenTTL:      7 * 24 * time.Hour,
		Workers:       2,
		Now:           func() time.Time { return testNow },
	}
	for _, f := range tune {
		f(&opt)
	}
	e, err := New(Deps{
		Settings:    w,
		Formats:     (*formatStore)(w),
		Sets:        (*setStore)(w),
		Templates:   (*templateStore)(w),
		Mappings:    (*mappingStore)(w),
		Index:       (*indexStore)(w),
		Tokens:      (*tokenStore)(w),
		Documents:   (*docStore)(w),
		Transformer: w,
	}, opt)
	require.NoError(t, err)
	return e
}

func (w *world) Settings(context.Context) (model.Settings, error) { return w.settings, nil }

func (w *world) Transform(_ context.Context, in []byte, id int64) ([]byte, error) {
	w.mu.Lock()
	w.transforms = append(w.transforms, id)
	w.mu.Unlock()
	return w.transform(in, id)
}

type formatStore world

func (s *formatStore) ByPrefix(_ context.Context, prefix string) (model.MetadataFormat, error) {
	for _, f := range s.formats {
		if f.Prefix == prefix {
			return f, nil
		}
	}
	return model.MetadataFormat{}, model.ErrNotFound
}

func (s *formatStore) All(context.Context) ([]model.MetadataFormat, error) {
	out := append([]model.MetadataFormat(nil), s.formats...)
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out, nil
}

func (s *formatStore) DerivedForTemplate(_ context.Context, templateID int64) (model.MetadataFormat, error) {
	for _, f := range s.formats {
		if f.OwnedBy(templateID) {
			return f, nil
		}
	}
	return model.MetadataFormat{}, model.ErrNotFound
}

type setStore world

func (s *setStore) All(context.Context) ([]model.Set, error) {
	return append([]model.Set(nil), s.sets...), nil
}

func (s *setStore) BySpec(_ context.Context, spec string) (model.Set, error) {
	for _, set := range s.sets {
		if set.Spec == spec {
			return set, nil
		}
	}
	return model.Set{}, model.ErrNotFound
}

func (s *setStore) SpecsForTemplates(_ context.Context, ids []int64) (map[int64][]string, error) {
	out := map[int64][]string{}
	for _, id := range ids {
		for _, t := range s.templates {
			if t.ID != id {
				continue
			}
			for _, set := range s.sets {
				for _, g := range set.TemplateGroups {
					if g == t.VersionGroupID {
						out[id] = append(out[id], set.Spec)
					}
				}
			}
		}
		sort.Strings(out[id])
	}
	return out, nil
}

type templateStore world

func (s *templateStore) Get(_ context.Context, id int64) (model.Template, error) {
	for _, t := range s.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Template{}, model.ErrNotFound
}

func (s *templateStore) IDsInGroups(_ context.Context, groups []int64) ([]int64, error) {
	var out []int64
	for _, t := range s.templates {
		for _, g := range groups {
			if t.VersionGroupID == g {
				out = append(out, t.ID)
			}
		}
	}
	return out, nil
}

type mappingStore world

func (s *mappingStore) Find(_ context.Context, templateID, formatID int64) (model.FormatMapping, error) {
	for _, m := range s.mappings {
		if m.TemplateID == templateID && m.FormatID == formatID {
			return m, nil
		}
	}
	return model.FormatMapping{}, model.ErrNotFound
}

func (s *mappingStore) TemplatesForFormat(_ context.Context, formatID int64) ([]int64, error) {
	var out []int64
	for _, m := range s.mappings {
		if m.FormatID == formatID {
			out = append(out, m.TemplateID)
		}
	}
	return out, nil
}

func (s *mappingStore) FormatsForTemplate(_ context.Context, templateID int64) ([]model.MetadataFormat, error) {
	var out []model.MetadataFormat
	for _, m := range s.mappings {
		if m.TemplateID != templateID {
			continue
		}
		for _, f := range s.formats {
			if f.ID == m.FormatID {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

type indexStore world

func (s *indexStore) ByDocument(_ context.Context, id string) (model.IndexEntry, error) {
	for _, en := range s.entries {
		if en.DocumentID == id {
			return en, nil
		}
	}
	return model.IndexEntry{}, model.ErrNotFound
}

func (s *indexStore) Find(_ context.Context, q model.EntryQuery) (model.EntryPage, error) {
	var hits []model.IndexEntry
	for _, en := range s.entries {
		switch {
		case !containsID(q.TemplateIDs, en.TemplateID):
		case q.From != nil && en.LastModified.Before(*q.From):
		case q.Until != nil && en.LastModified.After(*q.Until):
		default:
			hits = append(hits, en)
		}
	}
	page := model.EntryPage{Total: len(hits)}
	if q.Offset < len(hits) {
		end := min(q.Offset+q.Limit, len(hits))
		page.Entries = hits[q.Offset:end]
	}
	return page, nil
}

func (s *indexStore) Earliest(context.Context) (time.Time, bool, error) {
	if len(s.entries) == 0 {
		return time.Time{}, false, nil
	}
	first := s.entries[0].LastModified
	for _, en := range s.entries[1:] {
		if en.LastModified.Before(first) {
			first = en.LastModified
		}
	}
	return first, true, nil
}

type tokenStore world

func (s *tokenStore) Insert(_ context.Context, p model.ResumptionPage) error {
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := s.pages[p.Token]; ok {
		return model.ErrDuplicate
	}
	s.pages[p.Token] = p
	return nil
}

func (s *tokenStore) Get(_ context.Context, token string) (model.ResumptionPage, error) {
	p, ok := s.pages[token]
	if !ok {
		return p, model.ErrNotFound
	}
	return p, nil
}

type docStore world

func (s *docStore) Get(_ context.Context, id string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return d, model.ErrNotFound
	}
	return d, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
