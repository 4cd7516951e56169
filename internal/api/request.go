package api

import "time"

// SnapshotCreateRequest is the payload to capture a subreddit snapshot.
type SnapshotCreateRequest struct {
	Subreddit string `json:"subreddit" example:"golang"`
	Sort      string `json:"sort" example:"hot"`
	Limit     int    `json:"limit" example:"10"`
}

// AnalysisCreateRequest is the payload to start a batch analysis run.
type AnalysisCreateRequest struct {
	SnapshotID string `json:"snapshot_id"`
	Model      string `json:"model,omitempty" example:"llama3.2:3b"`
	DelayMS    *int   `json:"delay_ms,omitempty"` // per-worker pause between requests
}

// Delay converts the optional millisecond delay into a duration.
func (r AnalysisCreateRequest) Delay() *time.Duration {
	if r.DelayMS == nil {
		return nil
	}
	d := time.Duration(*r.DelayMS) * time.Millisecond
	return &d
}
