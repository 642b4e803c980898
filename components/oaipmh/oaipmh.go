// components/oaipmh/oaipmh.go
//
// OAI-PMH component – the harvester-facing protocol endpoint.
//
// Context
// -------
// Harvesters issue GET requests with query arguments or form-encoded POSTs.
// Both reach the same handler; the engine sees one url.Values.  Protocol
// errors are ordinary 200 responses rendered by the engine.  Only a switched
// off repository (503) and operational failures (500) leave that path.
package oaipmh

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/oairepo/internal/component"
	"github.com/yanizio/oairepo/internal/oai"
	"github.com/yanizio/oairepo/internal/requestinfo"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

const contentType = "text/xml; charset=utf-8"

// Engine answers one protocol request.  *oai.Engine satisfies it.
type Engine interface {
	Handle(ctx context.Context, q url.Values) (*oai.Response, error)
}

// Component serves the protocol endpoint.
type Component struct {
	engine Engine
	path   string
	log    *zap.SugaredLogger
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "oaipmh" }

// Pattern is the configured endpoint path, /oai by default.
func (c *Component) Pattern() string { return c.path }

// Init picks the engine and endpoint path out of the shared services.
func (c *Component) Init(svc component.Services) error {
	if svc.Engine == nil {
		return errors.New("oaipmh: no protocol engine")
	}
	c.engine = svc.Engine
	c.path = svc.Config.OAI.Path
	c.log = svc.Log
	return nil
}

// Routes builds the router mounted at Pattern().
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.serve)
	r.Post("/", c.serve)
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handler ──────────────────────────────────────*/

func (c *Component) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed request arguments", http.StatusBadRequest)
		return
	}
	requestinfo.SetVerb(r.Context(), r.Form.Get(oai.ArgVerb))

	resp, err := c.engine.Handle(r.Context(), r.Form)
	switch {
	case errors.Is(err, oai.ErrHarvestingDisabled):
		w.Header().Set("Retry-After", "3600")
		http.Error(w, "harvesting is disabled", http.StatusServiceUnavailable)
		return
	case err != nil:
		c.log.Errorw("oai request failed", "query", r.Form.Encode(), "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if _, err := resp.WriteTo(w); err != nil {
		c.log.Warnw("oai response write failed", "err", err)
	}
}
