package reddit

import (
	"encoding/json"
)

// Listing sort orders accepted by ListThreads.
const (
	SortHot    = "hot"
	SortNew    = "new"
	SortTop    = "top"
	SortRising = "rising"
)

// Thing kinds on the Reddit wire format.
const (
	kindComment = "t1"
	kindThread  = "t3"
	kindListing = "Listing"
	kindMore    = "more"
)

//
// ────────────────────────────────────────────────
//   REDDIT WIRE  : Listing envelope
// ────────────────────────────────────────────────
//

// Thing is Reddit's polymorphic wrapper: a kind tag plus a raw payload
// decoded according to the kind (t1 comment, t3 submission, more stub).
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Listing is the paginated container Reddit wraps all result sets in.
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

// ListingData carries the children of a listing page plus pagination cursors.
type ListingData struct {
	After    string  `json:"after"`
	Before   string  `json:"before"`
	Children []Thing `json:"children"`
}

//
// ────────────────────────────────────────────────
//   REDDIT WIRE  : Submission (t3)
// ────────────────────────────────────────────────
//

// threadData is the wire form of a submission.
type threadData struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Score         int       `json:"score"`
	UpvoteRatio   float64   `json:"upvote_ratio"`
	NumComments   int       `json:"num_comments"`
	CreatedUTC    float64   `json:"created_utc"`
	URL           string    `json:"url"`
	Permalink     string    `json:"permalink"`
	Selftext      string    `json:"selftext"`
	IsSelf        bool      `json:"is_self"`
	Subreddit     string    `json:"subreddit"`
	LinkFlairText *string   `json:"link_flair_text"`
}

//
// ────────────────────────────────────────────────
//   REDDIT WIRE  : Comment (t1)
// ────────────────────────────────────────────────
//

// commentData is the wire form of a comment. Replies is either an empty
// string or a nested Listing; Edited is either false or a float timestamp.
type commentData struct {
	ID               string       `json:"id"`
	Author           string       `json:"author"`
	Body             string       `json:"body"`
	Score            int          `json:"score"`
	CreatedUTC       float64      `json:"created_utc"`
	ParentID         string       `json:"parent_id"` // fullname, e.g. "t1_abc" / "t3_xyz"
	Permalink        string       `json:"permalink"`
	IsSubmitter      bool         `json:"is_submitter"`
	Edited           editedFlag   `json:"edited"`
	Gilded           int          `json:"gilded"`
	Controversiality int          `json:"controversiality"`
	Subreddit        string       `json:"subreddit"`
	Replies          repliesField `json:"replies"`
}

// editedFlag decodes Reddit's "edited" field, which is false for unedited
// comments and the edit timestamp (a float) otherwise.
type editedFlag bool

func (e *editedFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*e = editedFlag(b)
		return nil
	}
	var ts float64
	if err := json.Unmarshal(data, &ts); err != nil {
		return err
	}
	*e = ts > 0
	return nil
}

// repliesField decodes the "replies" field, which is "" for leaf comments
// and a Listing for comments with children.
type repliesField struct {
	Listing *Listing
}

func (r *repliesField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Listing = nil
		return nil
	}
	var l Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	r.Listing = &l
	return nil
}

// children returns the reply things, or nil for a leaf comment.
func (r *repliesField) children() []Thing {
	if r.Listing == nil {
		return nil
	}
	return r.Listing.Data.Children
}

//
// ────────────────────────────────────────────────
//   REDDIT WIRE  : "more" stubs and /api/morechildren
// ────────────────────────────────────────────────
//

// moreData is the wire form of a truncated-children stub.
type moreData struct {
	Count    int      `json:"count"`
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"` // comment IDs still to fetch
}

// moreChildrenResponse is the /api/morechildren?api_type=json response.
type moreChildrenResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			Things []Thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

//
// ────────────────────────────────────────────────
//   REDDIT WIRE  : Error response
// ────────────────────────────────────────────────
//

// ErrorResponse is Reddit's JSON error body on 4xx responses.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   int    `json:"error"`
	Reason  string `json:"reason,omitempty"`
}
