// Package auth manages OAuth credentials for extension users.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

const stateSeparator = "|"

// ProviderConfig holds the OAuth client registration.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
}

// Provider performs the authorization-code and refresh grants.
type Provider struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

// NewProvider creates a Provider. httpClient may be nil.
func NewProvider(cfg ProviderConfig, httpClient *http.Client) *Provider {
	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

func (p *Provider) context(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// AuthCodeURL returns the authorization URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.cfg.Exchange(p.context(ctx), code)
	if err != nil {
		return nil, tokenError("exchange authorization code", err)
	}
	return tok, nil
}

// Refresh obtains a new token pair with refreshToken. When the server does not
// rotate the refresh token the old one is carried over.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is empty")
	}

	src := p.cfg.TokenSource(p.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError("refresh token", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func tokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &domain.RemoteAPIError{
			Operation: op,
			Status:    re.Response.StatusCode,
			Detail:    strings.TrimSpace(string(re.Body)),
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NewState builds an OAuth state value of the form "<nonce>|<extension user id>".
func NewState(extensionUserID string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(nonce) + stateSeparator + extensionUserID, nil
}

// ParseState extracts the extension user id from an OAuth state value.
func ParseState(state string) (string, error) {
	_, ext, ok := strings.Cut(state, stateSeparator)
	if !ok {
		return "", domain.Validationf("malformed state")
	}
	if ext == "" {
		return "", domain.Validationf("state carries no extension user id")
	}
	return ext, nil
}
