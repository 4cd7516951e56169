package model

import "time"

//
// ────────────────────────────────────────────────
//   Canonical Reddit content
// ────────────────────────────────────────────────
//

// Thread is the canonical representation of a Reddit submission.
type Thread struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"` // "[deleted]" when the account is gone
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	NumComments int       `json:"num_comments"`
	CreatedUTC  time.Time `json:"created_utc"`
	URL         string    `json:"url"`
	Permalink   string    `json:"permalink"` // absolute reddit.com URL
	Selftext    string    `json:"selftext"`
	IsSelf      bool      `json:"is_self"`
	Subreddit   string    `json:"subreddit"`
	Flair       string    `json:"flair,omitempty"`
}

// Comment is a single flattened comment from a thread's tree.
// ParentID is empty for top-level comments; Depth counts nesting from zero.
type Comment struct {
	ID               string    `json:"id"`
	Author           string    `json:"author"`
	Body             string    `json:"body"`
	Score            int       `json:"score"`
	CreatedUTC       time.Time `json:"created_utc"`
	ParentID         string    `json:"parent_id,omitempty"`
	Depth            int       `json:"depth"`
	Permalink        string    `json:"permalink"`
	IsSubmitter      bool      `json:"is_submitter"`
	Edited           bool      `json:"edited"`
	Gilded           int       `json:"gilded"`
	Controversiality int       `json:"controversiality"`
	Subreddit        string    `json:"subreddit,omitempty"` // set for user-content comments
}

// UserContent bundles a redditor's recent comments and submissions.
type UserContent struct {
	Username    string    `json:"username"`
	Comments    []Comment `json:"comments,omitempty"`
	Submissions []Thread  `json:"submissions,omitempty"`
}

//
// ────────────────────────────────────────────────
//   Snapshots
// ────────────────────────────────────────────────
//

// SnapshotThread pairs a thread with its fetched comments.
type SnapshotThread struct {
	Thread   Thread    `json:"thread"`
	Comments []Comment `json:"comments"`
}

// Snapshot is one capture of a subreddit: the selected threads ordered by
// comment count, each with its full flattened comment set.
type Snapshot struct {
	ID        string           `json:"id"`
	Subreddit string           `json:"subreddit"`
	Sort      string           `json:"sort"`
	FetchedAt time.Time        `json:"fetched_at"`
	Threads   []SnapshotThread `json:"threads"`
}

// CommentCount returns the total number of comments across all threads.
func (s *Snapshot) CommentCount() int {
	n := 0
	for _, t := range s.Threads {
		n += len(t.Comments)
	}
	return n
}

// AllComments returns every comment in the snapshot, in thread order.
func (s *Snapshot) AllComments() []Comment {
	out := make([]Comment, 0, s.CommentCount())
	for _, t := range s.Threads {
		out = append(out, t.Comments...)
	}
	return out
}
