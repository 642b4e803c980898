package oai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yanizio/oairepo/internal/model"
)

// formatByPrefix resolves a metadataPrefix; unknown is
// cannotDisseminateFormat.
func (e *Engine) formatByPrefix(ctx context.Context, prefix string) (model.MetadataFormat, error) {
	f, err := e.deps.Formats.ByPrefix(ctx, prefix)
	if errors.Is(err, model.ErrNotFound) {
		return f, errCannotDisseminate(prefix)
	}
	if err != nil {
		return f, fmt.Errorf("resolve format %q: %w", prefix, err)
	}
	return f, nil
}

// eligibleTemplates lists the templates whose records can be disseminated
// in f: the owner for a template-derived format, otherwise every template
// with an explicit mapping into f.
func (e *Engine) eligibleTemplates(ctx context.Context, f model.MetadataFormat) ([]int64, error) {
	if f.IsTemplateDerived() {
		return []int64{*f.OwnerTemplateID}, nil
	}
	ids, err := e.deps.Mappings.TemplatesForFormat(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("templates for format %q: %w", f.Prefix, err)
	}
	return ids, nil
}

// schemaURL is {schemaBaseURI}/XSD/{title}/{version}/ for template-derived
// formats and the stored URL for the rest.
func (e *Engine) schemaURL(ctx context.Context, f model.MetadataFormat) (string, error) {
	if !f.IsTemplateDerived() {
		return f.SchemaURL, nil
	}
	t, err := e.deps.Templates.Get(ctx, *f.OwnerTemplateID)
	if err != nil {
		return "", fmt.Errorf("schema for format %q: %w", f.Prefix, err)
	}
	return fmt.Sprintf("%s/XSD/%s/%d/",
		strings.TrimRight(e.opt.SchemaBaseURI, "/"), url.PathEscape(t.Title), t.VersionNumber), nil
}

func (e *Engine) listMetadataFormats(ctx context.Context, st model.Settings, a Args) (*ListMetadataFormats, error) {
	var formats []model.MetadataFormat

	if a.Identifier == "" {
		all, err := e.deps.Formats.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("list formats: %w", err)
		}
		formats = all
	} else {
		entry, err := e.entryByIdentifier(ctx, st, a.Identifier)
		if err != nil {
			return nil, err
		}
		if formats, err = e.formatsForTemplate(ctx, entry.TemplateID); err != nil {
			return nil, err
		}
	}
	if len(formats) == 0 {
		return nil, errNoMetadataFormats
	}

	out := &ListMetadataFormats{Formats: make([]FormatInfo, 0, len(formats))}
	for _, f := range formats {
		schema, err := e.schemaURL(ctx, f)
		if err != nil {
			return nil, err
		}
		out.Formats = append(out.Formats, FormatInfo{
			Prefix:    f.Prefix,
			Schema:    schema,
			Namespace: f.Namespace,
		})
	}
	return out, nil
}

// formatsForTemplate is the template's native format, if any, followed by
// every format it is mapped into.
func (e *Engine) formatsForTemplate(ctx context.Context, templateID int64) ([]model.MetadataFormat, error) {
	var out []model.MetadataFormat
	native, err := e.deps.Formats.DerivedForTemplate(ctx, templateID)
	switch {
	case err == nil:
		out = append(out, native)
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("native format of template %d: %w", templateID, err)
	}

	mapped, err := e.deps.Mappings.FormatsForTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("mapped formats of template %d: %w", templateID, err)
	}
	for _, f := range mapped {
		if len(out) > 0 && f.ID == out[0].ID {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// entryByIdentifier resolves a full OAI identifier to its index entry.
func (e *Engine) entryByIdentifier(ctx context.Context, st model.Settings, identifier string) (model.IndexEntry, error) {
	local, err := ParseIdentifier(st.Identifier, identifier)
	if err != nil {
		return model.IndexEntry{}, err
	}
	entry, err := e.deps.Index.ByDocument(ctx, local)
	if errors.Is(err, model.ErrNotFound) {
		return entry, errIDDoesNotExist(identifier)
	}
	if err != nil {
		return entry, fmt.Errorf("lookup %q: %w", identifier, err)
	}
	return entry, nil
}
