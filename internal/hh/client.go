// Package hh is a client for the job-board REST API.
package hh

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 10 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string
	CacheSize int
	Timeout   time.Duration
	// Transport overrides the underlying round tripper. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client issues authenticated calls against the job-board API. Bearer clients
// are cached per access token in a bounded LRU keyed by the token digest.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
	clients   *lru.Cache[string, *http.Client]
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	cache, err := lru.New[string, *http.Client](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create client cache: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		transport: transport,
		clients:   cache,
	}, nil
}

// CachedClients returns the number of bearer clients currently cached.
func (c *Client) CachedClients() int {
	return c.clients.Len()
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (c *Client) httpClient(token string) *http.Client {
	key := tokenKey(token)
	if hc, ok := c.clients.Get(key); ok {
		return hc
	}

	base := &http.Client{Transport: c.transport}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.timeout

	c.clients.Add(key, hc)
	return hc
}

// Identity is the subset of the /me payload the service relies on.
type Identity struct {
	ID        FlexID    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Employer  *Employer `json:"employer"`
	Manager   *Manager  `json:"manager"`
}

// Employer is the employer block of the /me payload.
type Employer struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
}

// Manager is the manager block of the /me payload.
type Manager struct {
	ID FlexID `json:"id"`
}

// FlexID accepts identifiers encoded as JSON strings or numbers.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// Identity fetches the current user's identity.
func (c *Client) Identity(ctx context.Context, token string) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, token, "get current user info", http.MethodGet, "/me", nil, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Me returns the raw /me payload.
func (c *Client) Me(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, token, "get current user info", http.MethodGet, "/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveVacancies lists the employer's published vacancies.
func (c *Client) ActiveVacancies(ctx context.Context, token, employerID string, query url.Values) (map[string]any, error) {
	var out map[string]any
	path := "/employers/" + url.PathEscape(employerID) + "/vacancies/active"
	if err := c.do(ctx, token, "get active vacancy list", http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vacancy returns one vacancy by id.
func (c *Client) Vacancy(ctx context.Context, token, vacancyID string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, token, "get vacancy", http.MethodGet, "/vacancies/"+url.PathEscape(vacancyID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Negotiations lists responses and invitations matching query.
func (c *Client) Negotiations(ctx context.Context, token string, query url.Values) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, token, "get negotiations list", http.MethodGet, "/negotiations/response", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Resume returns one resume by id.
func (c *Client) Resume(ctx context.Context, token, resumeID string, query url.Values) (map[string]any, error) {
	var out map[string]any
	op := "get resume " + resumeID
	if err := c.do(ctx, token, op, http.MethodGet, "/resumes/"+url.PathEscape(resumeID), query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeNegotiationState moves a negotiation to a new state.
func (c *Client) ChangeNegotiationState(ctx context.Context, token, negotiationID, state string) (map[string]any, error) {
	body := map[string]string{"state": state}
	var out map[string]any
	path := "/negotiations/" + url.PathEscape(negotiationID)
	if err := c.do(ctx, token, "change negotiation state", http.MethodPut, path, nil, body, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{"negotiation_id": negotiationID, "state": state}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, token, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("Calling job-board API", "op", op, "method", method, "path", path)

	resp, err := c.httpClient(token).Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(op, resp.StatusCode, raw)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
