package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/secrets"
)

const (
	// tokenEndpoint is Reddit's OAuth2 token URL for app-only (userless) auth.
	tokenEndpoint = "https://www.reddit.com/api/v1/access_token"
	// tokenExpiryBuffer is the margin before actual expiry at which we pre-fetch a new token.
	tokenExpiryBuffer = 5 * time.Minute
)

// TokenResponse is the Reddit OAuth2 token endpoint response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// CredentialSource supplies Reddit app credentials.
type CredentialSource interface {
	Resolve(ctx context.Context) (secrets.Credentials, error)
	Bust()
}

// TokenManager fetches and caches an app-only OAuth2 bearer token using the
// client_credentials grant. Reddit app credentials are resolved lazily so a
// rotated secret.json takes effect on the next refresh.
type TokenManager struct {
	logger    *zap.Logger
	client    *http.Client
	creds     CredentialSource
	userAgent string

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(logger *zap.Logger, creds CredentialSource, userAgent string) *TokenManager {
	return &TokenManager{
		logger:    logger,
		client:    &http.Client{Timeout: 10 * time.Second},
		creds:     creds,
		userAgent: userAgent,
	}
}

// GetToken returns a valid bearer token, fetching a new one when the cached
// token is absent or within the expiry buffer.
func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && time.Now().Before(m.expiresAt.Add(-tokenExpiryBuffer)) {
		return m.accessToken, nil
	}

	token, err := m.fetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("reddit auth: fetch token: %w", err)
	}

	m.accessToken = token.AccessToken
	m.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	m.logger.Info("reddit.auth.token_refreshed",
		zap.Int64("expires_in_sec", token.ExpiresIn),
		zap.String("scope", token.Scope))

	return m.accessToken, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
// Called after the API rejects the bearer with a 401.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.accessToken = ""
	m.mu.Unlock()
	m.creds.Bust()
}

// fetchToken requests a new access token from Reddit's token endpoint.
func (m *TokenManager) fetchToken(ctx context.Context) (*TokenResponse, error) {
	creds, err := m.creds.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned empty access_token")
	}

	return &tokenResp, nil
}
