package model

import "time"

//
// ────────────────────────────────────────────────
//   Comment analysis
// ────────────────────────────────────────────────
//

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Toxicity levels.
const (
	ToxicityLow    = "low"
	ToxicityMedium = "medium"
	ToxicityHigh   = "high"
)

// CommentAnalysis is the structured result of analyzing a single comment.
type CommentAnalysis struct {
	CommentID   string   `json:"comment_id"`
	Sentiment   string   `json:"sentiment"`  // positive, negative, neutral
	Confidence  float64  `json:"confidence"` // 0.0 – 1.0
	Topics      []string `json:"topics"`
	Toxicity    string   `json:"toxicity"` // low, medium, high
	Emotion     string   `json:"emotion"`  // anger, joy, fear, sadness, surprise, disgust, neutral
	Summary     string   `json:"summary"`
	RawResponse string   `json:"raw_response,omitempty"`
}

// TopicCount is a topic with its occurrence count across a run.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// SummaryStats aggregates a batch of comment analyses.
type SummaryStats struct {
	TotalComments     int            `json:"total_comments"`
	Sentiments        map[string]int `json:"sentiment_distribution"`
	Toxicity          map[string]int `json:"toxicity_distribution"`
	Emotions          map[string]int `json:"emotion_distribution"`
	TopTopics         []TopicCount   `json:"top_topics"`
	AverageConfidence float64        `json:"average_confidence"`
}

//
// ────────────────────────────────────────────────
//   Analysis runs
// ────────────────────────────────────────────────
//

// Run states.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// AnalysisRun tracks one batch analysis over a snapshot's comments.
type AnalysisRun struct {
	ID         string            `json:"id"`
	SnapshotID string            `json:"snapshot_id"`
	Model      string            `json:"model"`
	Status     string            `json:"status"`
	Total      int               `json:"total"`
	Done       int               `json:"done"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Stats      *SummaryStats     `json:"stats,omitempty"`
	Results    []CommentAnalysis `json:"results,omitempty"`
}

// Terminal reports whether the run has finished, successfully or not.
func (r *AnalysisRun) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// Progress is a point-in-time progress report for a run.
type Progress struct {
	RunID   string  `json:"run_id"`
	Done    int     `json:"done"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Status  string  `json:"status"`
}
