package reddit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/secrets"
)

// mockTransport is an http.RoundTripper that delegates to a handler function.
type mockTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.fn(req)
}

// jsonResponse builds a fake *http.Response with the given status and JSON body.
func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// fakeCreds is a CredentialSource returning fixed credentials.
type fakeCreds struct {
	creds  secrets.Credentials
	err    error
	busted int
}

func (f *fakeCreds) Resolve(context.Context) (secrets.Credentials, error) {
	return f.creds, f.err
}

func (f *fakeCreds) Bust() { f.busted++ }

func newTokenManagerWithTransport(t *testing.T, fn func(*http.Request) (*http.Response, error)) (*TokenManager, *fakeCreds) {
	t.Helper()
	creds := &fakeCreds{creds: secrets.Credentials{ClientID: "abc123", ClientSecret: "s3cret"}}
	tm := NewTokenManager(zap.NewNop(), creds, "threadscope/test")
	tm.client = &http.Client{Transport: &mockTransport{fn: fn}}
	return tm, creds
}

// ─── GetToken: cache miss → fetches from Reddit ──────────────────────────────

func TestTokenManager_GetToken_FetchesOnCacheMiss(t *testing.T) {
	tokenResp, _ := json.Marshal(TokenResponse{
		AccessToken: "new-access-token",
		TokenType:   "bearer",
		ExpiresIn:   86400,
	})

	callCount := 0
	tm, _ := newTokenManagerWithTransport(t, func(req *http.Request) (*http.Response, error) {
		callCount++
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, tokenEndpoint, req.URL.String())
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		assert.Equal(t, "threadscope/test", req.Header.Get("User-Agent"))

		user, pass, ok := req.BasicAuth()
		require.True(t, ok, "token request must carry basic auth")
		assert.Equal(t, "abc123", user)
		assert.Equal(t, "s3cret", pass)

		body, _ := io.ReadAll(req.Body)
		assert.Contains(t, string(body), "grant_type=client_credentials")

		return jsonResponse(http.StatusOK, string(tokenResp)), nil
	})

	token, err := tm.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access-token", token)
	assert.Equal(t, 1, callCount, "should call the token endpoint exactly once on cache miss")
}

// ─── GetToken: cache hit → no HTTP call ──────────────────────────────────────

func TestTokenManager_GetToken_ReturnsCachedToken(t *testing.T) {
	callCount := 0
	tm, _ := newTokenManagerWithTransport(t, func(*http.Request) (*http.Response, error) {
		callCount++
		return nil, nil
	})

	tm.mu.Lock()
	tm.accessToken = "cached-token"
	tm.expiresAt = time.Now().Add(24 * time.Hour)
	tm.mu.Unlock()

	token, err := tm.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
	assert.Equal(t, 0, callCount, "cached token must not trigger an HTTP call")
}

// ─── GetToken: expiring token → refreshed ────────────────────────────────────

func TestTokenManager_GetToken_RefreshesNearExpiry(t *testing.T) {
	tokenResp, _ := json.Marshal(TokenResponse{AccessToken: "fresh-token", ExpiresIn: 3600})

	tm, _ := newTokenManagerWithTransport(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, string(tokenResp)), nil
	})

	// Inside the expiry buffer: should refresh.
	tm.mu.Lock()
	tm.accessToken = "stale-token"
	tm.expiresAt = time.Now().Add(1 * time.Minute)
	tm.mu.Unlock()

	token, err := tm.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}

// ─── GetToken: error paths ───────────────────────────────────────────────────

func TestTokenManager_GetToken_EmptyAccessToken(t *testing.T) {
	tm, _ := newTokenManagerWithTransport(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"","expires_in":3600}`), nil
	})

	_, err := tm.GetToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty access_token")
}

func TestTokenManager_GetToken_Non200(t *testing.T) {
	tm, _ := newTokenManagerWithTransport(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"invalid_grant"}`), nil
	})

	_, err := tm.GetToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

// ─── Invalidate: drops token and busts credentials ───────────────────────────

func TestTokenManager_Invalidate(t *testing.T) {
	tokenResp, _ := json.Marshal(TokenResponse{AccessToken: "token-2", ExpiresIn: 3600})

	callCount := 0
	tm, creds := newTokenManagerWithTransport(t, func(*http.Request) (*http.Response, error) {
		callCount++
		return jsonResponse(http.StatusOK, string(tokenResp)), nil
	})

	tm.mu.Lock()
	tm.accessToken = "token-1"
	tm.expiresAt = time.Now().Add(24 * time.Hour)
	tm.mu.Unlock()

	tm.Invalidate()
	assert.Equal(t, 1, creds.busted, "invalidation must bust the credential cache")

	token, err := tm.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 1, callCount)
}
