package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/oairepo/internal/model"
)

// TokenStore persists resumption pages.  Rows are insert-only; expired
// rows are left for an external sweep (see PurgeExpired).
type TokenStore struct {
	db *sqlx.DB
}

type tokenRow struct {
	model.ResumptionPage
	TemplateIDs string `db:"template_ids"`
}

// Insert stores p.  A token collision surfaces as ErrDuplicate.
func (s *TokenStore) Insert(ctx context.Context, p model.ResumptionPage) error {
	ids, err := json.Marshal(p.TemplateIDs)
	if err != nil {
		return wrap("oai_resumption_page", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO oai_resumption_page (token, template_ids, metadata_prefix, set_spec, from_date, until_date, page_number, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Token, string(ids), p.MetadataPrefix, p.SetSpec, p.From, p.Until, p.PageNumber, p.ExpiresAt)
	return wrap("oai_resumption_page", err)
}

// Get loads a page by token.  Expiry is the caller's concern.
func (s *TokenStore) Get(ctx context.Context, token string) (model.ResumptionPage, error) {
	var row tokenRow
	if err := s.db.GetContext(ctx, &row,
		`SELECT token, template_ids, metadata_prefix, set_spec, from_date, until_date, page_number, expires_at FROM oai_resumption_page WHERE token = ?`,
		token); err != nil {
		return model.ResumptionPage{}, wrap("oai_resumption_page", err)
	}
	p := row.ResumptionPage
	if err := json.Unmarshal([]byte(row.TemplateIDs), &p.TemplateIDs); err != nil {
		return model.ResumptionPage{}, wrap("oai_resumption_page", err)
	}
	return p, nil
}

// PurgeExpired deletes pages that expired before now and returns how many
// went.
func (s *TokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM oai_resumption_page WHERE expires_at < ?`, now)
	if err != nil {
		return 0, wrap("oai_resumption_page", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("oai_resumption_page", err)
}
