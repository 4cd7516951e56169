package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the core runtime configuration for a service instance.
// It supports environment-based initialization, with sensible defaults.
type Config struct {
	ServiceName string // e.g. "threadscope"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.
	Port        int    // service HTTP port

	DatabaseURL string
	RedisAddr   string // e.g. localhost:6379
	RedisDB     int
	RedisPass   string
	NATSURL     string // e.g. nats://localhost:4222
	AWSRegion   string // for AWS SDK client

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPBodyLimit    int

	CacheTTL    time.Duration // TTL for secret cache
	CleanupFreq time.Duration // frequency for cache cleanup goroutine

	PGMaxConns          int
	PGMinConns          int
	PGMaxConnLifetime   time.Duration
	PGMaxConnIdleTime   time.Duration
	PGHealthCheckPeriod time.Duration

	// Reddit API configuration.
	// Credentials (client_id, client_secret) are resolved at runtime:
	// env vars, then the local secret file, then AWS Secrets Manager.
	// See internal/secrets/resolver.go.
	RedditUserAgent      string
	RedditSecretFile     string // path to secret.json
	RedditRequestsPerMin int    // API request budget
	RedditBurst          int    // token bucket burst
	RedditMoreLimit      int    // max /api/morechildren continuation calls per thread

	// Watched subreddits are re-snapshotted on a schedule by the poller.
	// Empty list disables the poller.
	WatchSubreddits  []string
	WatchInterval    time.Duration
	WatchThreadLimit int

	SnapshotTTL time.Duration // Redis TTL for snapshot payloads

	// Ollama configuration.
	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration

	// Analysis configuration.
	AnalysisWorkers int           // concurrent LLM requests per run
	AnalysisDelay   time.Duration // pause between LLM requests per worker
	ProgressEvery   int           // publish a NATS progress event every N comments

	// Progress WebSocket listener. Served on its own port since the main
	// app runs on fasthttp, which cannot hand a connection to the upgrader.
	WSPort int
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: GetEnv("SERVICE_NAME", "threadscope"),
		Env:         GetEnv("ENV", "dev"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
		Port:        GetEnvInt("PORT", 9040),

		DatabaseURL: GetEnv("DATABASE_URL", ""),
		RedisAddr:   GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     GetEnvInt("REDIS_DB", 0),
		RedisPass:   GetEnv("REDIS_PASS", ""),
		NATSURL:     GetEnv("NATS_URL", "nats://localhost:4222"),
		AWSRegion:   GetEnv("AWS_REGION", "us-east-2"),

		HTTPReadTimeout:  GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: GetEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		HTTPIdleTimeout:  GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		HTTPBodyLimit:    GetEnvInt("HTTP_BODY_LIMIT", 1*1024*1024),

		CacheTTL:    GetEnvDuration("CACHE_TTL", 24*time.Hour),
		CleanupFreq: GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),

		PGMaxConns:          GetEnvInt("PG_MAX_CONNS", 10),
		PGMinConns:          GetEnvInt("PG_MIN_CONNS", 2),
		PGMaxConnLifetime:   GetEnvDuration("PG_MAX_CONN_LIFETIME", 30*time.Minute),
		PGMaxConnIdleTime:   GetEnvDuration("PG_MAX_CONN_IDLE_TIME", 5*time.Minute),
		PGHealthCheckPeriod: GetEnvDuration("PG_HEALTH_CHECK_PERIOD", 1*time.Minute),

		RedditUserAgent:      GetEnv("REDDIT_USER_AGENT", "threadscope/1.0"),
		RedditSecretFile:     GetEnv("REDDIT_SECRET_FILE", "secret.json"),
		RedditRequestsPerMin: GetEnvInt("REDDIT_REQUESTS_PER_MIN", 50),
		RedditBurst:          GetEnvInt("REDDIT_BURST", 5),
		RedditMoreLimit:      GetEnvInt("REDDIT_MORE_LIMIT", 20),

		WatchSubreddits:  GetEnvList("WATCH_SUBREDDITS"),
		WatchInterval:    GetEnvDuration("WATCH_INTERVAL", 1*time.Hour),
		WatchThreadLimit: GetEnvInt("WATCH_THREAD_LIMIT", 10),

		SnapshotTTL: GetEnvDuration("SNAPSHOT_TTL", 24*time.Hour),

		OllamaURL:     GetEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:   GetEnv("OLLAMA_MODEL", "llama3.2:3b"),
		OllamaTimeout: GetEnvDuration("OLLAMA_TIMEOUT", 60*time.Second),

		AnalysisWorkers: GetEnvInt("ANALYSIS_WORKERS", 2),
		AnalysisDelay:   GetEnvDuration("ANALYSIS_DELAY", 0),
		ProgressEvery:   GetEnvInt("PROGRESS_EVERY", 10),

		WSPort: GetEnvInt("WS_PORT", 9041),
	}

	return cfg
}
