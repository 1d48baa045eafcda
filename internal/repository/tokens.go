package repository

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"github.com/garrettladley/whoopsync/internal/db"
)

// TokenRepository persists the single WHOOP OAuth token of this installation.
type TokenRepository interface {
	// Get returns nil, nil when no token has been stored.
	Get(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
}

type tokenRepo struct {
	conn db.DBTX
}

func (r *tokenRepo) Get(ctx context.Context) (*oauth2.Token, error) {
	const query = `SELECT access_token, refresh_token, token_type, expiry FROM oauth_tokens WHERE id = 1`

	var (
		token   oauth2.Token
		refresh *string
	)
	err := r.conn.QueryRow(ctx, query).Scan(&token.AccessToken, &refresh, &token.TokenType, &token.Expiry)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	token.RefreshToken = deref(refresh)
	return &token, nil
}

// Save keeps the stored refresh token when the new token omits one, since
// refresh responses may not rotate it.
func (r *tokenRepo) Save(ctx context.Context, token *oauth2.Token) error {
	const query = `
INSERT INTO oauth_tokens (id, access_token, refresh_token, token_type, expiry, updated_at)
VALUES (1, $1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	access_token = excluded.access_token,
	refresh_token = COALESCE(excluded.refresh_token, oauth_tokens.refresh_token),
	token_type = excluded.token_type,
	expiry = excluded.expiry,
	updated_at = excluded.updated_at`

	var refresh *string
	if token.RefreshToken != "" {
		refresh = &token.RefreshToken
	}

	_, err := r.conn.Exec(ctx, query,
		token.AccessToken,
		refresh,
		token.Type(),
		token.Expiry.UTC(),
		time.Now().UTC(),
	)
	return err
}
