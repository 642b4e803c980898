// internal/settings/provider.go
//
// Cached access to the repository settings singleton.
//
// Context
// -------
// Every OAI request reads the settings row (harvesting gate, identifier
// scheme, Identify payload).  Provider keeps the row in a one-slot
// expiring LRU and collapses concurrent misses with singleflight, so a
// burst of harvester requests after expiry costs one SELECT.
//
// The admin surface calls Invalidate after every update; the TTL only
// bounds staleness when another process edits the row.
package settings

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/oairepo/internal/cache"
	"github.com/yanizio/oairepo/internal/model"
)

// DefaultTTL bounds how long a cached row may be served.
const DefaultTTL = 30 * time.Second

const key = "settings"

// Loader reads the settings row.  *store.SettingsStore satisfies it.
type Loader interface {
	Get(ctx context.Context) (model.Settings, error)
}

// Provider is safe for concurrent use.
type Provider struct {
	src   Loader
	sfg   singleflight.Group
	cache *cache.LRU[string, model.Settings]
}

// New returns a Provider over src.  ttl <= 0 selects DefaultTTL.
func New(src Loader, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		src:   src,
		cache: cache.New[string, model.Settings]("settings", 1, ttl, nil),
	}
}

// Settings returns the cached row, loading it on a miss.
func (p *Provider) Settings(ctx context.Context) (model.Settings, error) {
	if v, ok := p.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := p.sfg.Do(key, func() (any, error) {
		s, err := p.src.Get(ctx)
		if err != nil {
			return nil, err
		}
		p.cache.Add(key, s)
		return s, nil
	})
	if err != nil {
		return model.Settings{}, err
	}
	return v.(model.Settings), nil
}

// Invalidate drops the cached row.
func (p *Provider) Invalidate() { p.cache.Remove(key) }
