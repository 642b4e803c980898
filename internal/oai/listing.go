package oai

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yanizio/oairepo/internal/model"
)

// listing is the state of one ListIdentifiers or ListRecords page.
type listing struct {
	format model.MetadataFormat
	query  model.EntryQuery
	set    *string
	page   int

	total   int
	entries []model.IndexEntry
	specs   map[int64][]string
	token   *ResumptionToken
}

// openListing resolves the selection either from a resumption token or
// from fresh arguments.  The template list stored with a token is final.
func (e *Engine) openListing(ctx context.Context, a Args) (*listing, error) {
	if a.Resuming() {
		p, err := e.loadToken(ctx, a.ResumptionToken)
		if err != nil {
			return nil, err
		}
		f, err := e.deps.Formats.ByPrefix(ctx, p.MetadataPrefix)
		if errors.Is(err, model.ErrNotFound) {
			return nil, errBadResumptionToken
		}
		if err != nil {
			return nil, fmt.Errorf("resume listing: %w", err)
		}
		return &listing{
			format: f,
			query:  model.EntryQuery{TemplateIDs: p.TemplateIDs, From: p.From, Until: p.Until},
			set:    p.SetSpec,
			page:   p.PageNumber,
		}, nil
	}

	from, err := ParseDate(ArgFrom, a.From)
	if err != nil {
		return nil, err
	}
	until, err := ParseDate(ArgUntil, a.Until)
	if err != nil {
		return nil, err
	}
	if from != nil && until != nil && from.After(*until) {
		return nil, newError(CodeBadArgument, "from %s is later than until %s", a.From, a.Until)
	}

	f, err := e.formatByPrefix(ctx, a.MetadataPrefix)
	if err != nil {
		return nil, err
	}
	ids, err := e.eligibleTemplates(ctx, f)
	if err != nil {
		return nil, err
	}

	l := &listing{format: f, page: 1}
	if a.Set != "" {
		members, err := e.templatesForSet(ctx, a.Set)
		if err != nil {
			return nil, err
		}
		ids = intersect(ids, members)
		spec := a.Set
		l.set = &spec
	}
	l.query = model.EntryQuery{TemplateIDs: ids, From: from, Until: until}
	return l, nil
}

// fetch loads the current page, the set memberships of its records and, if
// more pages follow, a freshly minted token.
func (e *Engine) fetch(ctx context.Context, l *listing) error {
	if len(l.query.TemplateIDs) == 0 {
		return errNoRecordsMatch
	}

	size := e.opt.PageSize
	offset := size * (l.page - 1)
	l.query.Offset = offset
	l.query.Limit = size

	res, err := e.deps.Index.Find(ctx, l.query)
	if err != nil {
		return fmt.Errorf("query index: %w", err)
	}
	if len(res.Entries) == 0 {
		return errNoRecordsMatch
	}
	l.total, l.entries = res.Total, res.Entries

	if l.specs, err = e.deps.Sets.SpecsForTemplates(ctx, distinctTemplates(l.entries)); err != nil {
		return fmt.Errorf("set memberships: %w", err)
	}

	switch {
	case offset+len(l.entries) < l.total:
		p, err := e.mintToken(ctx, model.ResumptionPage{
			TemplateIDs:    l.query.TemplateIDs,
			MetadataPrefix: l.format.Prefix,
			SetSpec:        l.set,
			From:           l.query.From,
			Until:          l.query.Until,
			PageNumber:     l.page + 1,
		})
		if err != nil {
			return err
		}
		l.token = &ResumptionToken{
			Value:            p.Token,
			ExpirationDate:   FormatDate(p.ExpiresAt),
			CompleteListSize: l.total,
			Cursor:           offset,
		}
	case l.page > 1:
		// Last page of a multi-page list: an empty token closes it.
		l.token = &ResumptionToken{CompleteListSize: l.total, Cursor: offset}
	}
	return nil
}

func (e *Engine) header(st model.Settings, en model.IndexEntry, specs map[int64][]string) Header {
	h := Header{
		Identifier: FormatIdentifier(st.Identifier, en.DocumentID),
		Datestamp:  FormatDate(en.LastModified),
		SetSpecs:   specs[en.TemplateID],
	}
	if en.Deleted() {
		h.Status = statusDeleted
	}
	return h
}

func (e *Engine) listIdentifiers(ctx context.Context, st model.Settings, a Args) (*ListIdentifiers, error) {
	l, err := e.openListing(ctx, a)
	if err != nil {
		return nil, err
	}
	if err := e.fetch(ctx, l); err != nil {
		return nil, err
	}

	out := &ListIdentifiers{Headers: make([]Header, 0, len(l.entries)), Token: l.token}
	for _, en := range l.entries {
		out.Headers = append(out.Headers, e.header(st, en, l.specs))
	}
	return out, nil
}

func (e *Engine) listRecords(ctx context.Context, st model.Settings, a Args) (*ListRecords, error) {
	l, err := e.openListing(ctx, a)
	if err != nil {
		return nil, err
	}
	if err := e.fetch(ctx, l); err != nil {
		return nil, err
	}

	records := make([]*Record, len(l.entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opt.Workers)
	for i, en := range l.entries {
		g.Go(func() error {
			rec, ok, err := e.record(gctx, l.format, e.header(st, en, l.specs), en)
			if err != nil {
				return err
			}
			if ok {
				records[i] = &rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ListRecords{Records: make([]Record, 0, len(records)), Token: l.token}
	for _, rec := range records {
		if rec != nil {
			out.Records = append(out.Records, *rec)
		}
	}
	if len(out.Records) == 0 {
		return nil, errNoRecordsMatch
	}
	return out, nil
}

// record renders one entry.  Tombstones, and entries whose document has
// vanished, carry only a deleted header.  ok is false when the document
// cannot be disseminated in f.
func (e *Engine) record(ctx context.Context, f model.MetadataFormat, h Header, en model.IndexEntry) (Record, bool, error) {
	tombstone := func() (Record, bool, error) {
		h.Status = statusDeleted
		return Record{Header: h}, true, nil
	}
	if en.Deleted() {
		return tombstone()
	}

	doc, err := e.deps.Documents.Get(ctx, en.DocumentID)
	if errors.Is(err, model.ErrNotFound) {
		e.log.Warnw("indexed document missing", "document_id", en.DocumentID)
		return tombstone()
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load document %s: %w", en.DocumentID, err)
	}

	body, ok, err := e.disseminate(ctx, f, doc)
	if err != nil || !ok {
		return Record{}, false, err
	}
	return Record{Header: h, Metadata: &Metadata{Inner: body}}, true, nil
}

func distinctTemplates(entries []model.IndexEntry) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	out := make([]int64, 0, len(entries))
	for _, en := range entries {
		if _, ok := seen[en.TemplateID]; !ok {
			seen[en.TemplateID] = struct{}{}
			out = append(out, en.TemplateID)
		}
	}
	return out
}
