package oai

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/oairepo/internal/model"
)

// disseminate renders doc in format f.  ok == false means doc can not be
// expressed in f: there is no native match and no mapping.
func (e *Engine) disseminate(ctx context.Context, f model.MetadataFormat, doc model.Document) (out []byte, ok bool, err error) {
	body := StripDeclaration([]byte(doc.XML))

	if f.OwnedBy(doc.TemplateID) {
		return body, true, nil
	}
	if f.IsTemplateDerived() {
		// Mappings onto template-derived formats are never created.
		return nil, false, nil
	}

	m, err := e.deps.Mappings.Find(ctx, doc.TemplateID, f.ID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mapping for template %d into %q: %w", doc.TemplateID, f.Prefix, err)
	}

	out, err = e.deps.Transformer.Transform(ctx, body, m.StylesheetID)
	if err != nil {
		return nil, false, fmt.Errorf("disseminate %s as %q: %w", doc.ID, f.Prefix, err)
	}
	return StripDeclaration(out), true, nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

// StripDeclaration removes a leading byte-order mark and XML declaration so
// the content can be embedded in the response envelope.
func StripDeclaration(b []byte) []byte {
	b = bytes.TrimPrefix(b, utf8BOM)
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if len(trimmed) < 6 || !bytes.HasPrefix(trimmed, []byte("<?xml")) || !isSpace(trimmed[5]) {
		return b
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end < 0 {
		return b
	}
	return bytes.TrimLeft(trimmed[end+2:], " \t\r\n")
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
