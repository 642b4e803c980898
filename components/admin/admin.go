// components/admin/admin.go
//
// Admin component – JSON management API for the repository registries.
//
// Context
// -------
// Everything a harvester sees is configured here: repository identity,
// metadata formats, sets, template → format mappings, stylesheets,
// templates, and the documents themselves.  Document writes go through
// the document store so the index maintainer observes them.
//
// Workflow
// --------
//  1. Every request must carry `Authorization: Bearer <admin.token>`.
//  2. Bodies are decoded strictly and checked with go-playground/validator.
//  3. Store sentinels map onto 404 / 409; anything else is logged and
//     answered with 500.
//  4. Writes that change cached state invalidate the matching cache
//     (settings provider, stylesheet files).
//
// Notes
// -----
//   - With admin.token empty the component returns no routes and stays
//     unmounted.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/oairepo/internal/component"
	"github.com/yanizio/oairepo/internal/index"
	"github.com/yanizio/oairepo/internal/model"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

/*──────────────────────────── backends ─────────────────────────────────────*/

type SettingsStore interface {
	Get(ctx context.Context) (model.Settings, error)
	Update(ctx context.Context, v model.Settings) error
}

type FormatStore interface {
	All(ctx context.Context) ([]model.MetadataFormat, error)
	Create(ctx context.Context, f model.MetadataFormat) (model.MetadataFormat, error)
	Rename(ctx context.Context, id int64, prefix string) error
	Delete(ctx context.Context, id int64) error
}

type SetStore interface {
	All(ctx context.Context) ([]model.Set, error)
	Create(ctx context.Context, set model.Set) (model.Set, error)
	Update(ctx context.Context, set model.Set) error
	Delete(ctx context.Context, id int64) error
}

type MappingStore interface {
	List(ctx context.Context) ([]model.FormatMapping, error)
	Create(ctx context.Context, m model.FormatMapping) (model.FormatMapping, error)
	Delete(ctx context.Context, id int64) error
}

type TemplateStore interface {
	List(ctx context.Context) ([]model.Template, error)
	Create(ctx context.Context, t model.Template) (model.Template, error)
}

type StylesheetStore interface {
	List(ctx context.Context) ([]model.Stylesheet, error)
	Get(ctx context.Context, id int64) (model.Stylesheet, error)
	Create(ctx context.Context, sh model.Stylesheet) (model.Stylesheet, error)
	Update(ctx context.Context, sh model.Stylesheet) error
}

type DocumentStore interface {
	Get(ctx context.Context, id string) (model.Document, error)
	Save(ctx context.Context, doc model.Document) (model.Document, error)
	Delete(ctx context.Context, id string) error
}

type TokenStore interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type IndexSyncer interface {
	Sync(ctx context.Context) (index.SyncReport, error)
}

// Backend bundles the stores and caches the handlers act on.
type Backend struct {
	Settings    SettingsStore
	Formats     FormatStore
	Sets        SetStore
	Mappings    MappingStore
	Templates   TemplateStore
	Stylesheets StylesheetStore
	Documents   DocumentStore
	Tokens      TokenStore
	Index       IndexSyncer

	SettingsCache interface{ Invalidate() }
	SheetCache    interface{ Invalidate(id int64) }
}

/*──────────────────────────── component ────────────────────────────────────*/

// Component encapsulates the admin API.
type Component struct {
	b     Backend
	token string
	log   *zap.SugaredLogger
	now   func() time.Time
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "admin" }

// Pattern mounts the API under /admin.
func (c *Component) Pattern() string { return "/admin" }

// Init wires the concrete stores and caches from the shared services.
func (c *Component) Init(svc component.Services) error {
	if svc.Store == nil || svc.Settings == nil || svc.Index == nil || svc.XSLT == nil {
		return errors.New("admin: incomplete services")
	}
	st := svc.Store
	c.b = Backend{
		Settings:      st.Settings,
		Formats:       st.Formats,
		Sets:          st.Sets,
		Mappings:      st.Mappings,
		Templates:     st.Templates,
		Stylesheets:   st.Stylesheets,
		Documents:     st.Documents,
		Tokens:        st.Tokens,
		Index:         svc.Index,
		SettingsCache: svc.Settings,
		SheetCache:    svc.XSLT,
	}
	c.token = svc.Config.Admin.Token
	c.log = svc.Log
	c.now = time.Now
	return nil
}

// Routes builds the API router, or nil when no admin token is configured.
func (c *Component) Routes() chi.Router {
	if c.token == "" {
		return nil
	}
	r := chi.NewRouter()
	r.Use(bearerAuth(c.token))

	r.Get("/settings", c.getSettings)
	r.Put("/settings", c.putSettings)

	r.Route("/formats", func(r chi.Router) {
		r.Get("/", c.listFormats)
		r.Post("/", c.createFormat)
		r.Patch("/{id}", c.renameFormat)
		r.Delete("/{id}", c.deleteFormat)
	})
	r.Route("/sets", func(r chi.Router) {
		r.Get("/", c.listSets)
		r.Post("/", c.createSet)
		r.Put("/{id}", c.updateSet)
		r.Delete("/{id}", c.deleteSet)
	})
	r.Route("/mappings", func(r chi.Router) {
		r.Get("/", c.listMappings)
		r.Post("/", c.createMapping)
		r.Delete("/{id}", c.deleteMapping)
	})
	r.Route("/stylesheets", func(r chi.Router) {
		r.Get("/", c.listStylesheets)
		r.Post("/", c.createStylesheet)
		r.Get("/{id}", c.getStylesheet)
		r.Put("/{id}", c.updateStylesheet)
	})
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", c.listTemplates)
		r.Post("/", c.createTemplate)
	})
	r.Route("/documents", func(r chi.Router) {
		r.Get("/{id}", c.getDocument)
		r.Put("/{id}", c.putDocument)
		r.Delete("/{id}", c.deleteDocument)
	})
	r.Post("/index/sync", c.syncIndex)
	r.Post("/tokens/purge", c.purgeTokens)
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }
