package reddit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/metrics"
	"github.com/threadscope/threadscope/pkg/config"
	"github.com/threadscope/threadscope/pkg/model"
)

// autoModeratorPrefix marks comments dropped from snapshots.
const autoModeratorPrefix = "AutoModerator"

// APIClient is the subset of the Reddit client the service depends on.
type APIClient interface {
	ListThreads(ctx context.Context, subreddit, sort string, limit int) (*Listing, error)
	SearchThreads(ctx context.Context, subreddit, query string, limit int) (*Listing, error)
	GetComments(ctx context.Context, threadID, sort string) (*Thing, []Thing, error)
	MoreChildren(ctx context.Context, threadID string, ids []string) ([]Thing, error)
	UserComments(ctx context.Context, username string, limit int) (*Listing, error)
	UserSubmissions(ctx context.Context, username string, limit int) (*Listing, error)
}

// SnapshotStore persists completed snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *model.Snapshot, ttl time.Duration) error
}

// EventPublisher emits lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Service orchestrates Reddit API operations: thread listing, comment tree
// retrieval, user content, and subreddit snapshots.
type Service struct {
	cfg       config.Config
	logger    *zap.Logger
	client    APIClient
	mapper    *Mapper
	store     SnapshotStore
	publisher EventPublisher
}

// NewService constructs a fully wired Reddit service.
func NewService(
	cfg config.Config,
	logger *zap.Logger,
	client APIClient,
	st SnapshotStore,
	pub EventPublisher,
) *Service {
	return &Service{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		mapper:    NewMapper(),
		store:     st,
		publisher: pub,
	}
}

// ListThreads fetches threads from a subreddit. A non-empty query switches
// from plain listing to subreddit-restricted search.
func (s *Service) ListThreads(ctx context.Context, subreddit, query, sortOrder string, limit int) ([]model.Thread, error) {
	var (
		listing *Listing
		err     error
	)
	if query != "" {
		listing, err = s.client.SearchThreads(ctx, subreddit, query, limit)
	} else {
		listing, err = s.client.ListThreads(ctx, subreddit, sortOrder, limit)
	}
	if err != nil {
		s.logger.Error("reddit.list_threads.failed",
			zap.String("subreddit", subreddit),
			zap.Error(err))
		return nil, fmt.Errorf("list threads for r/%s: %w", subreddit, err)
	}

	threads := s.mapper.ThreadsFromListing(listing)
	s.logger.Info("reddit.threads_listed",
		zap.String("subreddit", subreddit),
		zap.String("sort", sortOrder),
		zap.Int("count", len(threads)))
	return threads, nil
}

// GetThreadComments fetches the full flattened comment set for a thread,
// resolving truncated branches via /api/morechildren up to the configured
// continuation budget.
func (s *Service) GetThreadComments(ctx context.Context, threadID, sortOrder string) ([]model.Comment, error) {
	_, things, err := s.client.GetComments(ctx, threadID, sortOrder)
	if err != nil {
		s.logger.Error("reddit.get_comments.failed",
			zap.String("thread_id", threadID),
			zap.Error(err))
		return nil, fmt.Errorf("get comments for thread %s: %w", threadID, err)
	}

	comments, pending := s.mapper.FlattenComments(things)

	// Depth lookup for continuation batches.
	known := make(map[string]int, len(comments))
	for _, c := range comments {
		known[c.ID] = c.Depth
	}

	calls := 0
	for len(pending) > 0 && calls < s.cfg.RedditMoreLimit {
		batch := pending
		if len(batch) > 100 { // morechildren accepts at most 100 IDs
			batch = batch[:100]
		}
		pending = pending[len(batch):]
		calls++

		things, err := s.client.MoreChildren(ctx, threadID, batch)
		if err != nil {
			s.logger.Warn("reddit.morechildren_failed",
				zap.String("thread_id", threadID),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			continue
		}
		more, nested := s.mapper.CommentsFromThings(things, known)
		comments = append(comments, more...)
		pending = append(pending, nested...)
	}

	if len(pending) > 0 {
		s.logger.Warn("reddit.comments_truncated",
			zap.String("thread_id", threadID),
			zap.Int("unresolved", len(pending)),
			zap.Int("continuation_calls", calls))
	}

	s.logger.Info("reddit.comments_fetched",
		zap.String("thread_id", threadID),
		zap.Int("count", len(comments)),
		zap.Int("continuation_calls", calls))
	return comments, nil
}

// GetUserContent fetches a redditor's comments and/or submissions.
// kind is "comments", "submissions", or "both".
func (s *Service) GetUserContent(ctx context.Context, username, kind string, limit int) (*model.UserContent, error) {
	switch kind {
	case "comments", "submissions", "both":
	default:
		return nil, fmt.Errorf("invalid content kind %q", kind)
	}

	content := &model.UserContent{Username: username}

	if kind == "comments" || kind == "both" {
		listing, err := s.client.UserComments(ctx, username, limit)
		if err != nil {
			return nil, fmt.Errorf("user comments for u/%s: %w", username, err)
		}
		content.Comments = s.mapper.UserCommentsFromListing(listing)
	}

	if kind == "submissions" || kind == "both" {
		listing, err := s.client.UserSubmissions(ctx, username, limit)
		if err != nil {
			return nil, fmt.Errorf("user submissions for u/%s: %w", username, err)
		}
		content.Submissions = s.mapper.ThreadsFromListing(listing)
	}

	s.logger.Info("reddit.user_content_fetched",
		zap.String("username", username),
		zap.Int("comments", len(content.Comments)),
		zap.Int("submissions", len(content.Submissions)))
	return content, nil
}

// SnapshotSubreddit captures a subreddit: it lists threads, orders them by
// comment count, fetches every thread's full comment set, drops AutoModerator
// comments, and persists the result. Threads left without comments are skipped.
func (s *Service) SnapshotSubreddit(ctx context.Context, subreddit, sortOrder string, limit int) (*model.Snapshot, error) {
	threads, err := s.ListThreads(ctx, subreddit, "", sortOrder, limit)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return nil, fmt.Errorf("no threads found in r/%s", subreddit)
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].NumComments > threads[j].NumComments
	})

	snap := &model.Snapshot{
		ID:        uuid.NewString(),
		Subreddit: subreddit,
		Sort:      sortOrder,
		FetchedAt: time.Now().UTC(),
	}

	for _, thread := range threads {
		comments, err := s.GetThreadComments(ctx, thread.ID, "")
		if err != nil {
			s.logger.Warn("reddit.snapshot_thread_failed",
				zap.String("thread_id", thread.ID),
				zap.Error(err))
			continue
		}

		kept := comments[:0]
		for _, c := range comments {
			if strings.HasPrefix(c.Author, autoModeratorPrefix) {
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			s.logger.Debug("reddit.snapshot_thread_empty",
				zap.String("thread_id", thread.ID))
			continue
		}

		snap.Threads = append(snap.Threads, model.SnapshotThread{
			Thread:   thread,
			Comments: kept,
		})
	}

	if err := s.store.SaveSnapshot(ctx, snap, s.cfg.SnapshotTTL); err != nil {
		metrics.IncError("reddit", "snapshot_save_failed")
		return nil, fmt.Errorf("save snapshot for r/%s: %w", subreddit, err)
	}

	metrics.SetLastSnapshot(subreddit, snap.FetchedAt)

	if s.publisher != nil {
		event := map[string]any{
			"snapshot_id": snap.ID,
			"subreddit":   subreddit,
			"threads":     len(snap.Threads),
			"comments":    snap.CommentCount(),
			"fetched_at":  snap.FetchedAt,
		}
		if err := s.publisher.Publish(ctx, model.SubjectSnapshotCompleted, event); err != nil {
			s.logger.Debug("nats.publish_failed",
				zap.String("subject", model.SubjectSnapshotCompleted),
				zap.Error(err))
		}
	}

	s.logger.Info("reddit.snapshot_complete",
		zap.String("snapshot_id", snap.ID),
		zap.String("subreddit", subreddit),
		zap.Int("threads", len(snap.Threads)),
		zap.Int("comments", snap.CommentCount()))
	return snap, nil
}
