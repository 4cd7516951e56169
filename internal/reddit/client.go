package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/httpclient"
	"github.com/threadscope/threadscope/internal/metrics"
	"github.com/threadscope/threadscope/internal/rate"
)

// defaultBaseURL is the authenticated Reddit API host.
const defaultBaseURL = "https://oauth.reddit.com"

// Client wraps low-level HTTP communication with the Reddit data API.
// All requests carry the app-only bearer token and the configured User-Agent.
type Client struct {
	logger    *zap.Logger
	exec      *httpclient.Executor
	tokens    *TokenManager
	baseURL   string
	userAgent string
}

// NewClient constructs a new Reddit HTTP client instance.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, tokens *TokenManager, userAgent string) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 2, "reddit", func(status int, body []byte) error {
		var errResp ErrorResponse
		_ = json.Unmarshal(body, &errResp)

		logger.Warn("reddit.client_error",
			zap.Int("status", status),
			zap.String("message", errResp.Message),
			zap.String("body", string(body)))

		if status == http.StatusUnauthorized {
			// Bearer rejected; force a refresh on the next request.
			tokens.Invalidate()
		}

		errMsg := errResp.Message
		if errMsg == "" {
			errMsg = string(body)
		}
		return fmt.Errorf("reddit returned %d: %s", status, errMsg)
	})
	return &Client{
		logger:    logger,
		exec:      exec,
		tokens:    tokens,
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
	}
}

// SetBaseURL overrides the API host (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// ListThreads fetches a subreddit listing page for the given sort order.
// Unknown sorts fall back to hot.
// GET /r/{subreddit}/{sort}
func (c *Client) ListThreads(ctx context.Context, subreddit, sort string, limit int) (*Listing, error) {
	switch sort {
	case SortHot, SortNew, SortTop, SortRising:
	default:
		sort = SortHot
	}

	q := url.Values{
		"limit":    {strconv.Itoa(limit)},
		"raw_json": {"1"},
	}
	var listing Listing
	endpoint := fmt.Sprintf("/r/%s/%s", url.PathEscape(subreddit), sort)
	if err := c.getJSON(ctx, "listing", endpoint, q, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// SearchThreads searches within a subreddit.
// GET /r/{subreddit}/search
func (c *Client) SearchThreads(ctx context.Context, subreddit, query string, limit int) (*Listing, error) {
	q := url.Values{
		"q":           {query},
		"restrict_sr": {"1"},
		"limit":       {strconv.Itoa(limit)},
		"raw_json":    {"1"},
	}
	var listing Listing
	endpoint := fmt.Sprintf("/r/%s/search", url.PathEscape(subreddit))
	if err := c.getJSON(ctx, "search", endpoint, q, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetComments fetches a thread's comment forest.
// Reddit returns a two-element array: the submission listing and the comments listing.
// GET /comments/{threadID}
func (c *Client) GetComments(ctx context.Context, threadID, sort string) (post *Thing, comments []Thing, err error) {
	q := url.Values{
		"raw_json": {"1"},
		"limit":    {"500"},
	}
	if sort != "" {
		q.Set("sort", sort)
	}

	var pages []Listing
	endpoint := "/comments/" + url.PathEscape(threadID)
	if err := c.getJSON(ctx, "comments", endpoint, q, &pages); err != nil {
		return nil, nil, err
	}
	if len(pages) < 2 {
		return nil, nil, fmt.Errorf("reddit comments response has %d listings, want 2", len(pages))
	}

	if children := pages[0].Data.Children; len(children) > 0 {
		post = &children[0]
	}
	return post, pages[1].Data.Children, nil
}

// MoreChildren resolves a batch of truncated comment IDs for a thread.
// GET /api/morechildren
func (c *Client) MoreChildren(ctx context.Context, threadID string, ids []string) ([]Thing, error) {
	q := url.Values{
		"api_type": {"json"},
		"link_id":  {"t3_" + threadID},
		"children": {strings.Join(ids, ",")},
		"raw_json": {"1"},
	}
	var resp moreChildrenResponse
	if err := c.getJSON(ctx, "morechildren", "/api/morechildren", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.JSON.Errors) > 0 {
		return nil, fmt.Errorf("reddit morechildren errors: %v", resp.JSON.Errors)
	}
	return resp.JSON.Data.Things, nil
}

// UserComments fetches a redditor's newest comments.
// GET /user/{username}/comments
func (c *Client) UserComments(ctx context.Context, username string, limit int) (*Listing, error) {
	q := url.Values{
		"limit":    {strconv.Itoa(limit)},
		"sort":     {"new"},
		"raw_json": {"1"},
	}
	var listing Listing
	endpoint := fmt.Sprintf("/user/%s/comments", url.PathEscape(username))
	if err := c.getJSON(ctx, "user_comments", endpoint, q, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// UserSubmissions fetches a redditor's newest submissions.
// GET /user/{username}/submitted
func (c *Client) UserSubmissions(ctx context.Context, username string, limit int) (*Listing, error) {
	q := url.Values{
		"limit":    {strconv.Itoa(limit)},
		"sort":     {"new"},
		"raw_json": {"1"},
	}
	var listing Listing
	endpoint := fmt.Sprintf("/user/%s/submitted", url.PathEscape(username))
	if err := c.getJSON(ctx, "user_submissions", endpoint, q, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// getJSON performs an authenticated GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	err = c.exec.DoJSON(ctx, req, c.rateLimitKey(), out)
	if err != nil {
		metrics.IncRedditRequest(endpoint, "error")
		return err
	}
	metrics.IncRedditRequest(endpoint, "ok")
	return nil
}

// rateLimitKey isolates the token bucket per API host so a test override
// does not share the production bucket.
func (c *Client) rateLimitKey() string {
	return "reddit_api:" + c.baseURL
}
