package oai

import (
	"context"
	"fmt"

	"github.com/yanizio/oairepo/internal/model"
)

func (e *Engine) getRecord(ctx context.Context, st model.Settings, a Args) (*GetRecord, error) {
	entry, err := e.entryByIdentifier(ctx, st, a.Identifier)
	if err != nil {
		return nil, err
	}
	f, err := e.formatByPrefix(ctx, a.MetadataPrefix)
	if err != nil {
		return nil, err
	}

	specs, err := e.deps.Sets.SpecsForTemplates(ctx, []int64{entry.TemplateID})
	if err != nil {
		return nil, fmt.Errorf("set memberships: %w", err)
	}

	rec, ok, err := e.record(ctx, f, e.header(st, entry, specs), entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errCannotDisseminate(a.MetadataPrefix)
	}
	return &GetRecord{Record: rec}, nil
}
