package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/metrics"
	pkgsecrets "github.com/threadscope/threadscope/pkg/secrets"
	"github.com/threadscope/threadscope/pkg/utils"
)

const (
	envClientID     = "REDDIT_CLIENT_ID"
	envClientSecret = "REDDIT_CLIENT_SECRET"

	placeholderID     = "YOUR_CLIENT_ID"
	placeholderSecret = "YOUR_CLIENT_SECRET"

	cacheKey = "reddit"
)

// Credentials holds the Reddit app credentials.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Validate checks for missing, empty, or placeholder values.
func (c Credentials) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("client_id and client_secret cannot be empty")
	}
	if c.ClientID == placeholderID || c.ClientSecret == placeholderSecret {
		return fmt.Errorf("client_id and client_secret are still set to placeholder values")
	}
	return nil
}

// Resolver resolves Reddit app credentials. Sources are tried in order:
// environment variables, the local secret file, then AWS Secrets Manager.
// Resolved credentials are cached in-memory with TTL.
type Resolver struct {
	logger     *zap.Logger
	env        string
	secretFile string
	provider   pkgsecrets.Provider // optional; nil disables the AWS fallback
	cache      *pkgsecrets.Cache[Credentials]
}

// NewResolver constructs a credential resolver.
func NewResolver(
	logger *zap.Logger,
	env string,
	secretFile string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[Credentials],
) *Resolver {
	return &Resolver{
		logger:     logger,
		env:        env,
		secretFile: secretFile,
		provider:   provider,
		cache:      cache,
	}
}

// Resolve returns valid Reddit credentials, using cache when available.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	if creds, ok := r.cache.Get(cacheKey); ok {
		metrics.IncCacheHit("hit")
		return creds, nil
	}
	metrics.IncCacheHit("miss")

	creds, err := r.resolveUncached(ctx)
	if err != nil {
		return Credentials{}, err
	}

	r.cache.Put(cacheKey, creds)
	r.logger.Info("secrets.credentials_resolved",
		zap.String("client_id", utils.MaskSecret(creds.ClientID)))
	return creds, nil
}

func (r *Resolver) resolveUncached(ctx context.Context) (Credentials, error) {
	// 1. Environment variables, both must be set.
	id, secret := os.Getenv(envClientID), os.Getenv(envClientSecret)
	if id != "" && secret != "" {
		creds := Credentials{ClientID: id, ClientSecret: secret}
		if err := creds.Validate(); err != nil {
			return Credentials{}, fmt.Errorf("credentials from environment: %w", err)
		}
		return creds, nil
	}
	if id != "" || secret != "" {
		r.logger.Warn("secrets.partial_env_credentials",
			zap.String("hint", "both "+envClientID+" and "+envClientSecret+" must be set; falling back to secret file"))
	}

	// 2. Local secret file.
	creds, err := r.loadFromFile()
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		// The file exists but is unusable; surface that instead of
		// silently falling through to AWS.
		return Credentials{}, err
	}

	// 3. AWS Secrets Manager.
	if r.provider == nil {
		return Credentials{}, fmt.Errorf("no Reddit credentials: set %s/%s, create %q, or configure AWS Secrets Manager",
			envClientID, envClientSecret, r.secretFile)
	}
	return r.loadFromAWS(ctx)
}

// loadFromFile reads and validates the secret.json credential file.
func (r *Resolver) loadFromFile() (Credentials, error) {
	data, err := os.ReadFile(r.secretFile)
	if err != nil {
		return Credentials{}, fmt.Errorf("read secret file %q: %w", r.secretFile, err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return Credentials{}, fmt.Errorf("parse secret file %q: %w", r.secretFile, err)
	}
	if _, ok := raw["client_id"]; !ok {
		return Credentials{}, fmt.Errorf("secret file %q must contain 'client_id' and 'client_secret' keys", r.secretFile)
	}
	if _, ok := raw["client_secret"]; !ok {
		return Credentials{}, fmt.Errorf("secret file %q must contain 'client_id' and 'client_secret' keys", r.secretFile)
	}

	creds := Credentials{ClientID: raw["client_id"], ClientSecret: raw["client_secret"]}
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("secret file %q: %w", r.secretFile, err)
	}
	return creds, nil
}

// loadFromAWS resolves credentials from the "{env}/reddit" secret.
func (r *Resolver) loadFromAWS(ctx context.Context) (Credentials, error) {
	name := strings.ToLower(r.env) + "/reddit"
	m, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		metrics.IncError("secrets", "aws_fetch_failed")
		return Credentials{}, fmt.Errorf("resolve credentials from AWS secret %q: %w", name, err)
	}

	creds := Credentials{ClientID: m["client_id"], ClientSecret: m["client_secret"]}
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("AWS secret %q: %w", name, err)
	}
	r.logger.Info("secrets.aws_credentials_resolved", zap.String("secret", name))
	return creds, nil
}

// Bust drops cached credentials (e.g., after a 401 from the token endpoint).
func (r *Resolver) Bust() {
	r.cache.Bust(cacheKey)
}
