// Package auth supplies bearer tokens for the WebSocket handshake.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// Provider defines the interface for authentication providers that can
// obtain tokens and inject them into handshake headers.
type Provider interface {
	// Token retrieves a valid authentication token, using cached values
	// when available and valid.
	Token(ctx context.Context) (string, error)

	// InjectHeader sets the Authorization header on h.
	InjectHeader(ctx context.Context, h http.Header) error

	// Close releases any resources held by the provider.
	Close() error
}

// Config selects and configures a Provider. A static token wins over the
// OAuth2 settings when both are present.
type Config struct {
	Token        string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// New returns the provider described by cfg, or nil when cfg is empty.
func New(cfg Config) (Provider, error) {
	switch {
	case strings.TrimSpace(cfg.Token) != "":
		return NewStaticToken(cfg.Token), nil
	case cfg.TokenURL != "":
		p, err := NewOAuth2ClientCredentialsProvider(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes, DefaultRefreshBeforeExpiry)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}

func setBearer(h http.Header, token string) {
	h.Set("Authorization", "Bearer "+token)
}
