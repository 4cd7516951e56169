package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event subjects published by the service.
const (
	SubjectSnapshotCompleted = "evt.snapshot.completed.v1"
	SubjectAnalysisStarted   = "evt.analysis.started.v1"
	SubjectAnalysisProgress  = "evt.analysis.progress.v1"
	SubjectAnalysisCompleted = "evt.analysis.completed.v1"
	SubjectAnalysisFailed    = "evt.analysis.failed.v1"
)

// Envelope is the canonical event wrapper published to NATS.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope for the given event type with a marshaled payload.
func NewEnvelope(eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}, nil
}
