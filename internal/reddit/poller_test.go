package reddit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threadscope/threadscope/pkg/model"
)

// syncStore is a snapshot store safe for concurrent use, since the poller
// writes from its own goroutine while tests poll the count.
type syncStore struct {
	mu    sync.Mutex
	saved []*model.Snapshot
}

func (s *syncStore) SaveSnapshot(_ context.Context, snap *model.Snapshot, _ time.Duration) error {
	s.mu.Lock()
	s.saved = append(s.saved, snap)
	s.mu.Unlock()
	return nil
}

func (s *syncStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *syncStore) subreddits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.saved))
	for _, snap := range s.saved {
		out = append(out, snap.Subreddit)
	}
	return out
}

func watchedClient(t *testing.T, subreddit string) *fakeAPIClient {
	t.Helper()
	return &fakeAPIClient{
		listings: map[string]*Listing{
			subreddit: {Data: ListingData{Children: []Thing{threadThing(t, "w1", "watched thread", 3)}}},
		},
		comments: map[string][]Thing{
			"w1": {commentThing(t, "c1", "alice", "still relevant")},
		},
	}
}

func newTestPoller(svc *Service, subreddits []string, interval time.Duration) *Poller {
	return NewPoller(zap.NewNop(), svc, subreddits, 10, interval)
}

// ─── Poller lifecycle ────────────────────────────────────────────────────────

func TestPoller_DisabledWhenNoSubreddits(t *testing.T) {
	svc := newTestService(&fakeAPIClient{}, &memStore{}, nil)
	poller := newTestPoller(svc, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		poller.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately with an empty watch list")
	}
}

func TestPoller_RunsImmediateCycle(t *testing.T) {
	client := watchedClient(t, "golang")
	st := &syncStore{}
	svc := newTestService(client, st, nil)

	// Long interval so only the immediate cycle fires.
	poller := newTestPoller(svc, []string{"golang"}, time.Hour)
	go poller.Start(context.Background())
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return st.count() == 1
	}, 2*time.Second, 10*time.Millisecond,
		"first cycle should run without waiting for the ticker")
	assert.Equal(t, []string{"golang"}, st.subreddits())
}

func TestPoller_ContinuesPastFailures(t *testing.T) {
	// "broken" is not faked, so its snapshot errors; "golang" must still refresh.
	client := watchedClient(t, "golang")
	st := &syncStore{}
	svc := newTestService(client, st, nil)

	poller := newTestPoller(svc, []string{"broken", "golang"}, time.Hour)
	go poller.Start(context.Background())
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return st.count() == 1
	}, 2*time.Second, 10*time.Millisecond,
		"a failing subreddit must not block the rest of the watch list")
	assert.Equal(t, []string{"golang"}, st.subreddits())
}

func TestPoller_StopExits(t *testing.T) {
	client := watchedClient(t, "golang")
	svc := newTestService(client, &syncStore{}, nil)

	poller := newTestPoller(svc, []string{"golang"}, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		poller.Start(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	poller.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return after Stop")
	}
}

func TestPoller_ContextCancellation(t *testing.T) {
	client := watchedClient(t, "golang")
	svc := newTestService(client, &syncStore{}, nil)

	poller := newTestPoller(svc, []string{"golang"}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return after context cancellation")
	}
}
