package oauth

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/garrettladley/whoopsync/internal/config"
	"github.com/garrettladley/whoopsync/internal/xhttp"
)

const (
	authURL  = "https://api.prod.whoop.com/oauth/oauth2/auth"
	tokenURL = "https://api.prod.whoop.com/oauth/oauth2/token" //nolint:gosec // not credentials, just endpoint URL
)

const tokenRequestTimeout = 30 * time.Second

// offline grants the refresh token the sync relies on.
var scopes = []string{
	"offline",
	"read:recovery",
	"read:cycles",
	"read:sleep",
	"read:workout",
	"read:profile",
	"read:body_measurement",
}

func NewConfig(whoop config.Whoop) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     whoop.ClientID,
		ClientSecret: whoop.ClientSecret,
		RedirectURL:  whoop.RedirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// withHTTPClient makes token exchanges and refreshes go through the
// whoopsync transport.
func withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, xhttp.NewHTTPClient(xhttp.WithTimeout(tokenRequestTimeout)))
}
