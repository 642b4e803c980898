package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// SettingsStore reads and writes the repository identity singleton.
type SettingsStore struct {
	db *sqlx.DB
}

const settingsCols = `repository_name, repository_identifier, admin_email, harvesting_enabled`

// Get returns the settings row or ErrNotFound before first boot.
func (s *SettingsStore) Get(ctx context.Context) (model.Settings, error) {
	var out model.Settings
	err := s.db.GetContext(ctx, &out,
		`SELECT `+settingsCols+` FROM oai_settings WHERE id = 1`)
	return out, wrap("oai_settings", err)
}

// Init inserts the row unless it already exists.  It reports whether a row
// was created.
func (s *SettingsStore) Init(ctx context.Context, v model.Settings) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO oai_settings (id, `+settingsCols+`) VALUES (1, ?, ?, ?, ?)`,
		v.Name, v.Identifier, v.AdminEmail, v.HarvestingEnabled)
	if err != nil {
		return false, wrap("oai_settings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("oai_settings", err)
	}
	return n == 1, nil
}

// Update overwrites the singleton.
func (s *SettingsStore) Update(ctx context.Context, v model.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE oai_settings SET repository_name = ?, repository_identifier = ?, admin_email = ?, harvesting_enabled = ? WHERE id = 1`,
		v.Name, v.Identifier, v.AdminEmail, v.HarvestingEnabled)
	return wrap("oai_settings", err)
}
