// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/oaipmh builds one
// Services bundle after boot and hands it to Mount, which initialises every
// component and mounts its Routes() under its Pattern().

package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/oairepo/internal/config"
	"github.com/yanizio/oairepo/internal/index"
	"github.com/yanizio/oairepo/internal/oai"
	"github.com/yanizio/oairepo/internal/settings"
	"github.com/yanizio/oairepo/internal/store"
	"github.com/yanizio/oairepo/internal/xslt"
)

// Services is everything a component may depend on.  It is built once in
// main after the database, caches, and engine are up.
type Services struct {
	Config   *config.Config
	Engine   *oai.Engine
	Store    *store.Store
	Settings *settings.Provider
	Index    *index.Maintainer
	XSLT     *xslt.Processor
	Log      *zap.SugaredLogger
}

// Initializer receives the shared services once, before Routes is called.
type Initializer interface {
	Init(Services) error
}

// Component contract.
//
// Pattern() is the mount point, e.g. "/oai".  Routes() returning nil
// leaves the component unmounted (the admin surface without a token).
//
//	r := chi.NewRouter()
//	r.Get("/", c.serve)
//	return r
type Component interface {
	Name() string
	Pattern() string
	Routes() chi.Router
	Initializer
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component and mounts it on r.
func Mount(r chi.Router, svc Services) error {
	for _, c := range All() {
		if err := c.Init(svc); err != nil {
			return fmt.Errorf("component %s: %w", c.Name(), err)
		}
		routes := c.Routes()
		if routes == nil {
			svc.Log.Infow("component disabled", "component", c.Name())
			continue
		}
		r.Mount(c.Pattern(), routes)
		svc.Log.Infow("component mounted", "component", c.Name(), "pattern", c.Pattern())
	}
	return nil
}
