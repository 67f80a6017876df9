package queue

import (
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// AnalysisEventsQueue carries completed-analysis events for downstream
// consumers (claim builders, audit trail).
const AnalysisEventsQueue = "analysis_events"

// AnalysisCompletedEvent is published after a medical record analysis
// finishes, regardless of how many diagnoses were found.
type AnalysisCompletedEvent struct {
	AnalysisID     string    `json:"analysis_id"`
	UserID         int64     `json:"user_id"`
	FileName       string    `json:"file_name"`
	StorageKey     string    `json:"storage_key,omitempty"`
	DiagnosisCount int       `json:"diagnosis_count"`
	CompletedAt    time.Time `json:"completed_at"`
}

// PublishAnalysisCompleted pushes the event onto the analysis events queue
// and fans it out on the pubsub exchange for live listeners.
func PublishAnalysisCompleted(ch *amqp091.Channel, event AnalysisCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := PublishFIFO(ch, AnalysisEventsQueue, body); err != nil {
		return err
	}
	return PublishTopic(ch, "claims.analysis.completed", body)
}
