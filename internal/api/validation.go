package api

import (
	"fmt"
	"regexp"
	"strings"
)

// Subreddit and usernames: word characters plus hyphen, reddit's own rule.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{2,21}$`)

const maxThreadLimit = 100

func (r SnapshotCreateRequest) Validate() error {
	if strings.TrimSpace(r.Subreddit) == "" {
		return fmt.Errorf("subreddit is required")
	}
	if !nameRe.MatchString(r.Subreddit) {
		return fmt.Errorf("subreddit %q is not a valid subreddit name", r.Subreddit)
	}
	switch strings.ToLower(r.Sort) {
	case "", "hot", "new", "top", "rising":
	default:
		return fmt.Errorf("sort must be one of hot, new, top, rising")
	}
	if r.Limit < 0 || r.Limit > maxThreadLimit {
		return fmt.Errorf("limit must be between 0 and %d", maxThreadLimit)
	}
	return nil
}

func (r AnalysisCreateRequest) Validate() error {
	if strings.TrimSpace(r.SnapshotID) == "" {
		return fmt.Errorf("snapshot_id is required")
	}
	if r.DelayMS != nil && *r.DelayMS < 0 {
		return fmt.Errorf("delay_ms must not be negative")
	}
	return nil
}

// ValidateUsername checks a redditor name from a path parameter.
func ValidateUsername(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("username is required")
	}
	if !nameRe.MatchString(name) {
		return fmt.Errorf("username %q is not a valid reddit username", name)
	}
	return nil
}
