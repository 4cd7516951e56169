package reddit

import (
	"encoding/json"
	"time"

	"github.com/threadscope/threadscope/pkg/model"
)

const (
	deletedAuthor = "[deleted]"
	redditBase    = "https://reddit.com"
)

// Mapper converts Reddit wire structures into canonical models.
type Mapper struct{}

// NewMapper creates a Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ThreadsFromListing extracts canonical threads from a listing, skipping
// children that are not submissions or fail to decode.
func (m *Mapper) ThreadsFromListing(l *Listing) []model.Thread {
	threads := make([]model.Thread, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != kindThread {
			continue
		}
		var td threadData
		if err := json.Unmarshal(child.Data, &td); err != nil {
			continue
		}
		threads = append(threads, m.fromThreadData(&td))
	}
	return threads
}

func (m *Mapper) fromThreadData(td *threadData) model.Thread {
	author := td.Author
	if author == "" {
		author = deletedAuthor
	}
	flair := ""
	if td.LinkFlairText != nil {
		flair = *td.LinkFlairText
	}
	return model.Thread{
		ID:          td.ID,
		Title:       td.Title,
		Author:      author,
		Score:       td.Score,
		UpvoteRatio: td.UpvoteRatio,
		NumComments: td.NumComments,
		CreatedUTC:  epochToTime(td.CreatedUTC),
		URL:         td.URL,
		Permalink:   redditBase + td.Permalink,
		Selftext:    td.Selftext,
		IsSelf:      td.IsSelf,
		Subreddit:   td.Subreddit,
		Flair:       flair,
	}
}

// FlattenComments walks a comment forest depth-first, emitting canonical
// comments with parent IDs and nesting depth, and collecting the IDs held by
// "more" stubs so the caller can resolve them via /api/morechildren.
func (m *Mapper) FlattenComments(things []Thing) ([]model.Comment, []string) {
	var comments []model.Comment
	var moreIDs []string
	m.walk(things, "", 0, &comments, &moreIDs)
	return comments, moreIDs
}

func (m *Mapper) walk(things []Thing, parentID string, depth int, out *[]model.Comment, moreIDs *[]string) {
	for _, thing := range things {
		switch thing.Kind {
		case kindComment:
			var cd commentData
			if err := json.Unmarshal(thing.Data, &cd); err != nil {
				continue
			}
			*out = append(*out, m.fromCommentData(&cd, parentID, depth))
			m.walk(cd.Replies.children(), cd.ID, depth+1, out, moreIDs)
		case kindMore:
			var md moreData
			if err := json.Unmarshal(thing.Data, &md); err != nil {
				continue
			}
			*moreIDs = append(*moreIDs, md.Children...)
		}
	}
}

// CommentsFromThings maps a flat list of things (as returned by
// /api/morechildren) into canonical comments, resolving each comment's depth
// from its parent chain. Parents outside the known set get depth zero.
func (m *Mapper) CommentsFromThings(things []Thing, known map[string]int) ([]model.Comment, []string) {
	var comments []model.Comment
	var moreIDs []string
	for _, thing := range things {
		switch thing.Kind {
		case kindComment:
			var cd commentData
			if err := json.Unmarshal(thing.Data, &cd); err != nil {
				continue
			}
			parent := localID(cd.ParentID)
			depth := 0
			if d, ok := known[parent]; ok {
				depth = d + 1
			} else {
				parent = "" // top-level relative to the thread
			}
			c := m.fromCommentData(&cd, parent, depth)
			known[c.ID] = c.Depth
			comments = append(comments, c)
		case kindMore:
			var md moreData
			if err := json.Unmarshal(thing.Data, &md); err != nil {
				continue
			}
			moreIDs = append(moreIDs, md.Children...)
		}
	}
	return comments, moreIDs
}

func (m *Mapper) fromCommentData(cd *commentData, parentID string, depth int) model.Comment {
	author := cd.Author
	if author == "" {
		author = deletedAuthor
	}
	return model.Comment{
		ID:               cd.ID,
		Author:           author,
		Body:             cd.Body,
		Score:            cd.Score,
		CreatedUTC:       epochToTime(cd.CreatedUTC),
		ParentID:         parentID,
		Depth:            depth,
		Permalink:        redditBase + cd.Permalink,
		IsSubmitter:      cd.IsSubmitter,
		Edited:           bool(cd.Edited),
		Gilded:           cd.Gilded,
		Controversiality: cd.Controversiality,
		Subreddit:        cd.Subreddit,
	}
}

// UserCommentsFromListing maps a user's comment listing (flat t1 things).
func (m *Mapper) UserCommentsFromListing(l *Listing) []model.Comment {
	comments := make([]model.Comment, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != kindComment {
			continue
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			continue
		}
		comments = append(comments, m.fromCommentData(&cd, localID(cd.ParentID), 0))
	}
	return comments
}

// localID strips the type prefix from a fullname ("t1_abc" → "abc").
func localID(fullname string) string {
	if len(fullname) > 3 && fullname[2] == '_' {
		return fullname[3:]
	}
	return fullname
}

func epochToTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
