package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/oairepo/internal/model"
)

/*──────────────────────────── stylesheets ──────────────────────────────────*/

type stylesheetInput struct {
	Name    string `json:"name"    validate:"required,max=255"`
	Content string `json:"content" validate:"required,wellformed"`
}

func (c *Component) listStylesheets(w http.ResponseWriter, r *http.Request) {
	out, err := c.b.Stylesheets.List(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (c *Component) getStylesheet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	sh, err := c.b.Stylesheets.Get(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (c *Component) createStylesheet(w http.ResponseWriter, r *http.Request) {
	var in stylesheetInput
	if !decode(w, r, &in) {
		return
	}
	sh, err := c.b.Stylesheets.Create(r.Context(), model.Stylesheet{Name: in.Name, Content: in.Content})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	sh.Content = ""
	writeJSON(w, http.StatusCreated, sh)
}

func (c *Component) updateStylesheet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in stylesheetInput
	if !decode(w, r, &in) {
		return
	}
	sh := model.Stylesheet{ID: id, Name: in.Name, Content: in.Content}
	if err := c.b.Stylesheets.Update(r.Context(), sh); err != nil {
		c.fail(w, r, err)
		return
	}
	c.b.SheetCache.Invalidate(id)
	sh.Content = ""
	writeJSON(w, http.StatusOK, sh)
}

/*──────────────────────────── templates ────────────────────────────────────*/

type templateInput struct {
	Title          string `json:"title"            validate:"required,max=255"`
	VersionGroupID int64  `json:"version_group_id" validate:"gte=0"`
	VersionNumber  int    `json:"version_number"   validate:"gte=1"`
	Content        string `json:"content"`
}

func (c *Component) listTemplates(w http.ResponseWriter, r *http.Request) {
	out, err := c.b.Templates.List(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (c *Component) createTemplate(w http.ResponseWriter, r *http.Request) {
	var in templateInput
	if !decode(w, r, &in) {
		return
	}
	t, err := c.b.Templates.Create(r.Context(), model.Template{
		Title:          in.Title,
		VersionGroupID: in.VersionGroupID,
		VersionNumber:  in.VersionNumber,
		Content:        in.Content,
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

/*──────────────────────────── documents ────────────────────────────────────*/

type documentInput struct {
	TemplateID int64  `json:"template_id" validate:"gt=0"`
	Title      string `json:"title"       validate:"max=255"`
	XML        string `json:"xml"         validate:"required,wellformed"`
	Public     bool   `json:"public"`
}

// maxDocumentID is the width of document.id.
const maxDocumentID = 64

func documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxDocumentID {
		writeError(w, http.StatusBadRequest, codeValidation, "id must be 1-64 characters")
		return "", false
	}
	return id, true
}

func (c *Component) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, err := c.b.Documents.Get(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (c *Component) putDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var in documentInput
	if !decode(w, r, &in) {
		return
	}
	doc, err := c.b.Documents.Save(r.Context(), model.Document{
		ID:         id,
		TemplateID: in.TemplateID,
		Title:      in.Title,
		XML:        in.XML,
		Public:     in.Public,
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (c *Component) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := c.b.Documents.Delete(r.Context(), id); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*──────────────────────────── maintenance ──────────────────────────────────*/

func (c *Component) syncIndex(w http.ResponseWriter, r *http.Request) {
	rep, err := c.b.Index.Sync(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.log.Infow("index synchronised", "indexed", rep.Indexed, "tombstoned", rep.Tombstoned)
	writeJSON(w, http.StatusOK, rep)
}

func (c *Component) purgeTokens(w http.ResponseWriter, r *http.Request) {
	n, err := c.b.Tokens.PurgeExpired(r.Context(), c.now().UTC())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": n})
}
