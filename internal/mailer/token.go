package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// ErrInvalidToken is returned when an access token cannot be obtained or
// is rejected by the token info endpoint
var ErrInvalidToken = errors.New("access token is invalid or expired")

// TokenProvider hands out OAuth2 access tokens for SMTP authentication
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenChecker validates an access token before it is used
type TokenChecker interface {
	CheckToken(ctx context.Context, token string) (*TokenInfo, error)
}

// OAuthConfig describes a refresh-token grant
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// RefreshTokens exchanges a long-lived refresh token for access tokens,
// reusing each access token until it expires
type RefreshTokens struct {
	src oauth2.TokenSource
}

// NewRefreshTokens creates a token provider. client may be nil.
func NewRefreshTokens(cfg OAuthConfig, client *http.Client) *RefreshTokens {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx := context.Background()
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	return &RefreshTokens{
		src: conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}),
	}
}

// AccessToken returns a valid access token, refreshing it when needed
func (r *RefreshTokens) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tok, err := r.src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: refresh failed: %v", ErrInvalidToken, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrInvalidToken)
	}
	return tok.AccessToken, nil
}

// TokenInfo is the subset of the token info response the service uses
type TokenInfo struct {
	Audience  string      `json:"aud"`
	Scope     string      `json:"scope"`
	Email     string      `json:"email"`
	ExpiresIn json.Number `json:"expires_in"`
}

// TokenInfoClient checks tokens against an OAuth2 tokeninfo endpoint
type TokenInfoClient struct {
	URL    string
	Client *http.Client
}

// NewTokenInfoClient creates a checker for endpoint
func NewTokenInfoClient(endpoint string, client *http.Client) *TokenInfoClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenInfoClient{URL: endpoint, Client: client}
}

// CheckToken returns the token details when the endpoint answers 200
func (c *TokenInfoClient) CheckToken(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid token info url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token info request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read token info: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidToken, resp.StatusCode, body)
	}

	var info TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode token info: %w", err)
	}
	return &info, nil
}
