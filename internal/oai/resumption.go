package oai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yanizio/oairepo/internal/metrics"
	"github.com/yanizio/oairepo/internal/model"
)

const (
	// maxTokenAttempts bounds the retries after a token collision.
	maxTokenAttempts = 8

	// tokenBytes of entropy, 32 characters once encoded.
	tokenBytes = 24
)

func (e *Engine) newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(e.opt.Rand, b); err != nil {
		return "", fmt.Errorf("oai: token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// mintToken persists p under a fresh random token.  Pages are immutable, so
// a unique-key collision only means the draw must be repeated.
func (e *Engine) mintToken(ctx context.Context, p model.ResumptionPage) (model.ResumptionPage, error) {
	p.ExpiresAt = e.now().Add(e.opt.TokenTTL).Truncate(time.Second)

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		tok, err := e.newToken()
		if err != nil {
			return p, err
		}
		p.Token = tok

		err = e.deps.Tokens.Insert(ctx, p)
		switch {
		case err == nil:
			metrics.TokensMinted.Inc()
			return p, nil
		case errors.Is(err, model.ErrDuplicate):
			metrics.TokenCollisions.Inc()
			e.log.Warnw("resumption token collision", "attempt", attempt)
		default:
			return p, fmt.Errorf("oai: store resumption page: %w", err)
		}
	}
	return p, fmt.Errorf("oai: no unique resumption token after %d attempts", maxTokenAttempts)
}

// loadToken rehydrates a suspended listing.  Unknown and expired tokens are
// badResumptionToken.
func (e *Engine) loadToken(ctx context.Context, token string) (model.ResumptionPage, error) {
	if token == "" {
		return model.ResumptionPage{}, errBadResumptionToken
	}
	p, err := e.deps.Tokens.Get(ctx, token)
	if errors.Is(err, model.ErrNotFound) {
		return p, errBadResumptionToken
	}
	if err != nil {
		return p, fmt.Errorf("oai: load resumption page: %w", err)
	}
	if p.Expired(e.now()) {
		return p, errBadResumptionToken
	}
	return p, nil
}
