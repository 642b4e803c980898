// cmd/oaipmh/main.go
//
// OAI-PMH data provider – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback) and install a console
//     logger so configuration problems are visible.
//
//  2. Connect to Vault when VAULT_ADDR is set; `vault:` references in the
//     configuration resolve through it.
//
//  3. Load configuration and start the rotating file logger.
//
//  4. Open MySQL, apply embedded migrations, seed first-boot rows.
//
//  5. Build the settings cache, the index maintainer (subscribed to the
//     document store, then a full sync), the XSLT processor, and the
//     protocol engine.
//
//  6. Build the router:
//
//     • RequestID / RealIP / Recoverer     – chi middleware
//     • requestinfo.Enrich                 – UA + GeoIP per request
//     • AccessLog / Security / ForceHTTPS  – internal/middleware
//     • /metrics                           – Prometheus
//     • components                         – /oai, /admin
//
//  7. Serve until SIGINT/SIGTERM, purging expired resumption pages hourly,
//     then shut down gracefully.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/oairepo/internal/component"
	"github.com/yanizio/oairepo/internal/config"
	"github.com/yanizio/oairepo/internal/database"
	"github.com/yanizio/oairepo/internal/index"
	"github.com/yanizio/oairepo/internal/logger"
	"github.com/yanizio/oairepo/internal/middleware"
	"github.com/yanizio/oairepo/internal/oai"
	"github.com/yanizio/oairepo/internal/requestinfo"
	"github.com/yanizio/oairepo/internal/seed"
	"github.com/yanizio/oairepo/internal/server"
	"github.com/yanizio/oairepo/internal/settings"
	"github.com/yanizio/oairepo/internal/store"
	"github.com/yanizio/oairepo/internal/vault"
	"github.com/yanizio/oairepo/internal/xslt"

	_ "github.com/yanizio/oairepo/components/admin"
	_ "github.com/yanizio/oairepo/components/oaipmh"
)

const (
	serverEnvPath   = "/usr/local/etc/oairepo/global.env"
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.S().Errorw("oaipmh stopped", "err", err)
		_ = zap.S().Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	boot := logger.Bootstrap()
	loadEnv()

	//
	// ── 1.  Secrets and configuration ───────────────────────────────────
	//
	var secrets config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, boot)
		if err != nil {
			return err
		}
		secrets = vc
	}
	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 2.  Database ────────────────────────────────────────────────────
	//
	log.Infow("connecting to database")
	db, err := database.OpenWithOptions(cfg.Database.DSN, cfg.Database.Password,
		cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(db, log); err != nil {
			return err
		}
	}

	st := store.New(db)
	if err := seed.Run(ctx, cfg, st.Settings, st.Formats, log); err != nil {
		return err
	}

	//
	// ── 3.  Caches, index, transformer, engine ──────────────────────────
	//
	provider := settings.New(st.Settings, settings.DefaultTTL)

	maint := index.New(st.Index, st.Documents, st.Templates, log)
	st.Documents.Subscribe(maint)
	rep, err := maint.Sync(ctx)
	if err != nil {
		return err
	}
	log.Infow("index synchronised", "indexed", rep.Indexed, "tombstoned", rep.Tombstoned)

	proc, err := xslt.New(cfg.XSLT, st.Stylesheets, log)
	if err != nil {
		return err
	}
	defer proc.Close()

	if err := requestinfo.InitGeo(cfg.GeoIP.Path); err != nil {
		log.Warnw("geoip disabled", "path", cfg.GeoIP.Path, "err", err)
	}
	defer requestinfo.CloseGeo()

	engine, err := oai.New(oai.Deps{
		Settings:    provider,
		Formats:     st.Formats,
		Sets:        st.Sets,
		Templates:   st.Templates,
		Mappings:    st.Mappings,
		Index:       st.Index,
		Tokens:      st.Tokens,
		Documents:   st.Documents,
		Transformer: proc,
	}, oai.Options{
		BaseURL:       cfg.OAI.BaseURL,
		SchemaBaseURI: cfg.OAI.SchemaBaseURI,
		PageSize:      cfg.OAI.ResultsPerPage,
		TokenTTL:      cfg.OAI.TokenTTL,
		Workers:       cfg.OAI.Workers,
		Log:           log,
	})
	if err != nil {
		return err
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		requestinfo.Enrich,
		middleware.AccessLog,
		middleware.Security,
		middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS),
	)
	r.Handle("/metrics", promhttp.Handler())

	if err := component.Mount(r, component.Services{
		Config:   cfg,
		Engine:   engine,
		Store:    st,
		Settings: provider,
		Index:    maint,
		XSLT:     proc,
		Log:      log,
	}); err != nil {
		return err
	}

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP, r)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("listening", "addr", srv.Addr, "oai_path", cfg.OAI.Path)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		purgeLoop(gctx, st.Tokens, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// purgeLoop deletes expired resumption pages until ctx is cancelled.
func purgeLoop(ctx context.Context, tokens *store.TokenStore, log *zap.SugaredLogger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Warnw("resumption page purge failed", "err", err)
				continue
			}
			if n > 0 {
				log.Infow("expired resumption pages purged", "count", n)
			}
		}
	}
}
