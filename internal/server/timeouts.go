// internal/server/timeouts.go
//
// HTTP server helper with explicit timeouts.
//
//   • ReadTimeout   – abort slow-loris headers
//   • WriteTimeout  – cap total response time (large ListRecords pages
//     with XSLT need more than the usual 15 s)
//   • IdleTimeout   – close keep-alives on idle clients
//
// Values come from the `http` config section so cmd/oaipmh doesn't repeat
// boilerplate.

package server

import (
	"net/http"

	"github.com/yanizio/oairepo/internal/config"
)

// New constructs an *http.Server from the http config section.
func New(cfg config.HTTP, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
