package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/threadscope/threadscope/pkg/model"
)

// ErrNotFound is returned when the requested record exists in neither tier.
var ErrNotFound = errors.New("not found")

// Store defines the contract for caching and persisting snapshots and
// analysis runs.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *model.Snapshot, ttl time.Duration) error
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, subreddit string, limit int) ([]model.Snapshot, error)
	SaveRun(ctx context.Context, run *model.AnalysisRun) error
	GetRun(ctx context.Context, id string) (*model.AnalysisRun, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore keeps hot records in Redis and mirrors them to Postgres when a
// pool is configured. Postgres is optional; without it the store degrades to
// cache-only operation.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

func snapshotKey(id string) string {
	return "snapshot:" + id
}

func runKey(id string) string {
	return "run:" + id
}

// SaveSnapshot writes the snapshot to Redis with the given TTL and mirrors
// the header, threads, and comments into Postgres when available. A Postgres
// failure is logged but does not fail the save.
func (s *HybridStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot, ttl time.Duration) error {
	if err := s.SetJSON(ctx, snapshotKey(snap.ID), snap, ttl); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	if s.PG == nil {
		return nil
	}
	if err := s.persistSnapshot(ctx, snap); err != nil {
		s.logger.Error("store.pg.snapshot_persist_failed",
			zap.String("snapshot_id", snap.ID), zap.Error(err))
	}
	return nil
}

func (s *HybridStore) persistSnapshot(ctx context.Context, snap *model.Snapshot) error {
	tx, err := s.PG.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO threadscope.snapshot (id, subreddit, sort_order, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			subreddit = EXCLUDED.subreddit,
			sort_order = EXCLUDED.sort_order,
			fetched_at = EXCLUDED.fetched_at;
	`, snap.ID, snap.Subreddit, snap.Sort, snap.FetchedAt)
	if err != nil {
		return err
	}

	for pos, st := range snap.Threads {
		t := st.Thread
		_, err = tx.Exec(ctx, `
			INSERT INTO threadscope.snapshot_thread (
				snapshot_id, thread_id, position, title, author,
				score, upvote_ratio, num_comments, created_utc,
				url, permalink, selftext, is_self, flair
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (snapshot_id, thread_id) DO UPDATE SET
				position = EXCLUDED.position,
				score = EXCLUDED.score,
				num_comments = EXCLUDED.num_comments;
		`, snap.ID, t.ID, pos, t.Title, t.Author,
			t.Score, t.UpvoteRatio, t.NumComments, t.CreatedUTC,
			t.URL, t.Permalink, t.Selftext, t.IsSelf, t.Flair)
		if err != nil {
			return err
		}

		for _, c := range st.Comments {
			_, err = tx.Exec(ctx, `
				INSERT INTO threadscope.snapshot_comment (
					snapshot_id, thread_id, comment_id, author, body,
					score, created_utc, parent_id, depth,
					is_submitter, edited, gilded, controversiality
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				ON CONFLICT (snapshot_id, comment_id) DO UPDATE SET
					body = EXCLUDED.body,
					score = EXCLUDED.score,
					edited = EXCLUDED.edited;
			`, snap.ID, t.ID, c.ID, c.Author, c.Body,
				c.Score, c.CreatedUTC, c.ParentID, c.Depth,
				c.IsSubmitter, c.Edited, c.Gilded, c.Controversiality)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// GetSnapshot loads a snapshot from Redis.
func (s *HybridStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.GetJSON(ctx, snapshotKey(id), &snap)
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSnapshots returns recent snapshot headers from Postgres.
func (s *HybridStore) ListSnapshots(ctx context.Context, subreddit string, limit int) ([]model.Snapshot, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.PG.Query(ctx, `
		SELECT id, subreddit, sort_order, fetched_at
		FROM threadscope.snapshot
		WHERE ($1 = '' OR LOWER(subreddit) = LOWER($1))
		ORDER BY fetched_at DESC
		LIMIT $2;
	`, subreddit, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.ID, &snap.Subreddit, &snap.Sort, &snap.FetchedAt); err != nil {
			return nil, err
		}
		results = append(results, snap)
	}
	return results, rows.Err()
}

// SaveRun writes the run record to Redis and mirrors the header plus any
// per-comment results to Postgres. Runs are kept in Redis without expiry so
// export stays available after the snapshot TTL lapses.
func (s *HybridStore) SaveRun(ctx context.Context, run *model.AnalysisRun) error {
	if err := s.SetJSON(ctx, runKey(run.ID), run, 0); err != nil {
		return fmt.Errorf("cache run: %w", err)
	}
	if s.PG == nil {
		return nil
	}
	if err := s.persistRun(ctx, run); err != nil {
		s.logger.Error("store.pg.run_persist_failed",
			zap.String("run_id", run.ID), zap.Error(err))
	}
	return nil
}

func (s *HybridStore) persistRun(ctx context.Context, run *model.AnalysisRun) error {
	var statsJSON []byte
	if run.Stats != nil {
		b, err := json.Marshal(run.Stats)
		if err != nil {
			return err
		}
		statsJSON = b
	}

	_, err := s.PG.Exec(ctx, `
		INSERT INTO threadscope.analysis_run (
			id, snapshot_id, model, status, total, done,
			started_at, finished_at, error, stats
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			done = EXCLUDED.done,
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error,
			stats = EXCLUDED.stats;
	`, run.ID, run.SnapshotID, run.Model, run.Status, run.Total, run.Done,
		run.StartedAt, run.FinishedAt, run.Error, statsJSON)
	if err != nil {
		return err
	}

	if len(run.Results) == 0 {
		return nil
	}

	tx, err := s.PG.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range run.Results {
		_, err = tx.Exec(ctx, `
			INSERT INTO threadscope.comment_analysis (
				run_id, comment_id, sentiment, confidence,
				topics, toxicity, emotion, summary
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (run_id, comment_id) DO UPDATE SET
				sentiment = EXCLUDED.sentiment,
				confidence = EXCLUDED.confidence,
				topics = EXCLUDED.topics,
				toxicity = EXCLUDED.toxicity,
				emotion = EXCLUDED.emotion,
				summary = EXCLUDED.summary;
		`, run.ID, r.CommentID, r.Sentiment, r.Confidence,
			r.Topics, r.Toxicity, r.Emotion, r.Summary)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetRun loads a run record, Redis first, falling back to Postgres.
func (s *HybridStore) GetRun(ctx context.Context, id string) (*model.AnalysisRun, error) {
	var run model.AnalysisRun
	err := s.GetJSON(ctx, runKey(id), &run)
	if err == nil {
		return &run, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if s.PG == nil {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return s.loadRunPG(ctx, id)
}

func (s *HybridStore) loadRunPG(ctx context.Context, id string) (*model.AnalysisRun, error) {
	var (
		run       model.AnalysisRun
		statsJSON []byte
	)
	err := s.PG.QueryRow(ctx, `
		SELECT id, snapshot_id, model, status, total, done,
		       started_at, finished_at, error, stats
		FROM threadscope.analysis_run
		WHERE id = $1;
	`, id).Scan(&run.ID, &run.SnapshotID, &run.Model, &run.Status, &run.Total,
		&run.Done, &run.StartedAt, &run.FinishedAt, &run.Error, &statsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if len(statsJSON) > 0 {
		run.Stats = &model.SummaryStats{}
		if err := json.Unmarshal(statsJSON, run.Stats); err != nil {
			return nil, err
		}
	}

	rows, err := s.PG.Query(ctx, `
		SELECT comment_id, sentiment, confidence, topics, toxicity, emotion, summary
		FROM threadscope.comment_analysis
		WHERE run_id = $1
		ORDER BY id;
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r model.CommentAnalysis
		if err := rows.Scan(&r.CommentID, &r.Sentiment, &r.Confidence,
			&r.Topics, &r.Toxicity, &r.Emotion, &r.Summary); err != nil {
			return nil, err
		}
		run.Results = append(run.Results, r)
	}
	return &run, rows.Err()
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
