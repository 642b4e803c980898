// internal/seed/seed.go
//
// First-boot seeding.
//
// Run once from cmd/oaipmh after migrations and before the listener opens.
// It inserts the settings singleton from the `repository` config section
// when the row is missing, and registers every default format from the
// `formats` section whose prefix is not taken yet.  Existing rows are
// never modified, so the admin API owns them after first boot.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/oairepo/internal/config"
	"github.com/yanizio/oairepo/internal/model"
)

// SettingsInit creates the settings row if absent.
type SettingsInit interface {
	Init(ctx context.Context, v model.Settings) (bool, error)
}

// FormatRegistry is the subset of the format store seeding needs.
type FormatRegistry interface {
	ByPrefix(ctx context.Context, prefix string) (model.MetadataFormat, error)
	Create(ctx context.Context, f model.MetadataFormat) (model.MetadataFormat, error)
}

// Run seeds settings and default formats.
func Run(ctx context.Context, cfg *config.Config, settings SettingsInit, formats FormatRegistry, log *zap.SugaredLogger) error {
	created, err := settings.Init(ctx, model.Settings{
		Name:              cfg.Repository.Name,
		Identifier:        cfg.Repository.Identifier,
		AdminEmail:        cfg.Repository.AdminEmail,
		HarvestingEnabled: cfg.Repository.HarvestingEnabled,
	})
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if created {
		log.Infow("settings seeded", "identifier", cfg.Repository.Identifier)
	}

	for _, f := range cfg.Formats {
		_, err := formats.ByPrefix(ctx, f.Prefix)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("seed format %s: %w", f.Prefix, err)
		}
		if _, err := formats.Create(ctx, model.MetadataFormat{
			Prefix:    f.Prefix,
			Namespace: f.Namespace,
			SchemaURL: f.SchemaURL,
			Kind:      model.FormatDefault,
		}); err != nil && !errors.Is(err, model.ErrDuplicate) {
			return fmt.Errorf("seed format %s: %w", f.Prefix, err)
		}
		log.Infow("default format seeded", "prefix", f.Prefix)
	}
	return nil
}
