package admin

import (
	"net/http"

	"github.com/yanizio/oairepo/internal/model"
)

/*──────────────────────────── settings ─────────────────────────────────────*/

type settingsInput struct {
	Name              string `json:"name"               validate:"required,max=255"`
	Identifier        string `json:"identifier"         validate:"required,hostname_rfc1123"`
	AdminEmail        string `json:"admin_email"        validate:"required,email"`
	HarvestingEnabled bool   `json:"harvesting_enabled"`
}

func (c *Component) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := c.b.Settings.Get(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (c *Component) putSettings(w http.ResponseWriter, r *http.Request) {
	var in settingsInput
	if !decode(w, r, &in) {
		return
	}
	st := model.Settings(in)
	if err := c.b.Settings.Update(r.Context(), st); err != nil {
		c.fail(w, r, err)
		return
	}
	c.b.SettingsCache.Invalidate()
	c.log.Infow("repository settings updated", "identifier", st.Identifier, "harvesting", st.HarvestingEnabled)
	writeJSON(w, http.StatusOK, st)
}

/*──────────────────────────── formats ──────────────────────────────────────*/

type formatInput struct {
	Prefix          string           `json:"prefix"            validate:"required,max=64,oaiprefix"`
	Namespace       string           `json:"namespace"         validate:"required,uri"`
	SchemaURL       string           `json:"schema_url"        validate:"required_unless=Kind template,omitempty,url"`
	SchemaContent   string           `json:"schema_content"`
	Kind            model.FormatKind `json:"kind"              validate:"required,oneof=default custom template"`
	OwnerTemplateID *int64           `json:"owner_template_id" validate:"required_if=Kind template,omitempty,gt=0"`
}

type renameInput struct {
	Prefix string `json:"prefix" validate:"required,max=64,oaiprefix"`
}

func (c *Component) listFormats(w http.ResponseWriter, r *http.Request) {
	out, err := c.b.Formats.All(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (c *Component) createFormat(w http.ResponseWriter, r *http.Request) {
	var in formatInput
	if !decode(w, r, &in) {
		return
	}
	f, err := c.b.Formats.Create(r.Context(), model.MetadataFormat{
		Prefix:          in.Prefix,
		Namespace:       in.Namespace,
		SchemaURL:       in.SchemaURL,
		SchemaContent:   in.SchemaContent,
		Kind:            in.Kind,
		OwnerTemplateID: in.OwnerTemplateID,
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (c *Component) renameFormat(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in renameInput
	if !decode(w, r, &in) {
		return
	}
	if err := c.b.Formats.Rename(r.Context(), id, in.Prefix); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Component) deleteFormat(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := c.b.Formats.Delete(r.Context(), id); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*──────────────────────────── sets ─────────────────────────────────────────*/

type setInput struct {
	Spec           string  `json:"set_spec"        validate:"required,max=255,setspec"`
	Name           string  `json:"set_name"        validate:"required,max=255"`
	Description    string  `json:"description"`
	TemplateGroups []int64 `json:"template_groups" validate:"dive,gt=0"`
}

func (in setInput) toSet(id int64) model.Set {
	return model.Set{ID: id, Spec: in.Spec, Name: in.Name, Description: in.Description, TemplateGroups: in.TemplateGroups}
}

func (c *Component) listSets(w http.ResponseWriter, r *http.Request) {
	out, err := c.b.Sets.All(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (c *Component) createSet(w http.ResponseWriter, r *http.Request) {
	var in setInput
	if !decode(w, r, &in) {
		return
	}
	set, err := c.b.Sets.Create(r.Context(), in.toSet(0))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (c *Component) updateSet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in setInput
	if !decode(w, r, &in) {
		return
	}
	set := in.toSet(id)
	if err := c.b.Sets.Update(r.Context(), set); err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (c *Component) deleteSet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := c.b.Sets.Delete(r.Context(), id); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*──────────────────────────── mappings ─────────────────────────────────────*/

type mappingInput struct {
	TemplateID   int64 `json:"template_id"   validate:"gt=0"`
	FormatID     int64 `json:"format_id"     validate:"gt=0"`
	StylesheetID int64 `json:"stylesheet_id" validate:"gt=0"`
}

func (c *Component) listMappings(w http.ResponseWriter, r *http.Request) {
	out, err := c.b.Mappings.List(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (c *Component) createMapping(w http.ResponseWriter, r *http.Request) {
	var in mappingInput
	if !decode(w, r, &in) {
		return
	}
	m, err := c.b.Mappings.Create(r.Context(), model.FormatMapping{
		TemplateID:   in.TemplateID,
		FormatID:     in.FormatID,
		StylesheetID: in.StylesheetID,
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (c *Component) deleteMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := c.b.Mappings.Delete(r.Context(), id); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil keeps empty lists rendering as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
