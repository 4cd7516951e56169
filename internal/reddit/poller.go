package reddit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/metrics"
)

// Poller periodically re-snapshots the configured watch list so analysis
// always has fresh material. It is disabled when the list is empty.
type Poller struct {
	logger     *zap.Logger
	service    *Service
	subreddits []string
	sortOrder  string
	limit      int
	interval   time.Duration
	stopCh     chan struct{}
}

// NewPoller constructs a watched-subreddit poller.
func NewPoller(logger *zap.Logger, service *Service, subreddits []string, limit int, interval time.Duration) *Poller {
	return &Poller{
		logger:     logger,
		service:    service,
		subreddits: subreddits,
		sortOrder:  SortHot,
		limit:      limit,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start runs the snapshot loop until stopped or the context is canceled.
// The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) {
	if len(p.subreddits) == 0 {
		p.logger.Info("poller.disabled (no watched subreddits)")
		return
	}

	p.logger.Info("poller.started",
		zap.Strings("subreddits", p.subreddits),
		zap.Duration("interval", p.interval))

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runOnce(ctx)
		case <-p.stopCh:
			p.logger.Info("poller.stopped (manual stop)")
			return
		case <-ctx.Done():
			p.logger.Info("poller.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the poller.
func (p *Poller) Stop() {
	close(p.stopCh)
}

// runOnce snapshots every watched subreddit, continuing past failures.
func (p *Poller) runOnce(ctx context.Context) {
	for _, subreddit := range p.subreddits {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		start := time.Now()
		snap, err := p.service.SnapshotSubreddit(ctx, subreddit, p.sortOrder, p.limit)
		if err != nil {
			metrics.IncError("poller", "snapshot_failed")
			p.logger.Warn("poller.snapshot_failed",
				zap.String("subreddit", subreddit),
				zap.Error(err))
			continue
		}

		p.logger.Info("poller.snapshot_refreshed",
			zap.String("subreddit", subreddit),
			zap.String("snapshot_id", snap.ID),
			zap.Int("comments", snap.CommentCount()),
			zap.Duration("duration", time.Since(start)))
	}
}
