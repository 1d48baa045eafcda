package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/garrettladley/whoopsync/internal/xslog"
)

// TokenStore persists the OAuth token between runs. Get returns nil, nil
// when nothing has been stored.
type TokenStore interface {
	Get(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
}

var _ oauth2.TokenSource = (*StoreTokenSource)(nil)

// StoreTokenSource hands out the stored token, refreshing and re-persisting
// it once expired. It is safe for concurrent use.
type StoreTokenSource struct {
	config *oauth2.Config
	store  TokenStore
	logger *slog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

func NewStoreTokenSource(config *oauth2.Config, store TokenStore, logger *slog.Logger) *StoreTokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreTokenSource{
		config: config,
		store:  store,
		logger: logger,
	}
}

func (s *StoreTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.token.Valid() {
		return s.token, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), tokenRequestTimeout)
	defer cancel()

	token, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, ErrNoToken
	}

	if token.Valid() {
		s.token = token
		return token, nil
	}

	if token.RefreshToken == "" {
		return nil, ErrTokenExpired
	}

	newToken, err := s.config.TokenSource(withHTTPClient(ctx), token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if err := s.store.Save(ctx, newToken); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}
	s.logger.Info("refreshed whoop access token", xslog.Expiry(newToken.Expiry))

	s.token = newToken
	return newToken, nil
}

// HasToken reports whether a token has been stored, without refreshing it.
func (s *StoreTokenSource) HasToken(ctx context.Context) (bool, error) {
	token, err := s.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return token != nil, nil
}
