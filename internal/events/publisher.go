package events

import (
	"context"
	"time"
)

// Event types emitted by the attempt lifecycle and rule management.
const (
	EventAttemptStarted   = "attempt.started"
	EventAttemptSubmitted = "attempt.submitted"
	EventAttemptTimedOut  = "attempt.timed_out"
	EventRuleCreated      = "assignment_rule.created"
	EventRuleDeleted      = "assignment_rule.deleted"
)

// Event is the envelope published to the event bus. Payload is
// type-specific and must be JSON-serializable.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type AttemptEventPayload struct {
	AttemptID    uint       `json:"attempt_id"`
	AssessmentID uint       `json:"assessment_id"`
	UserID       string     `json:"user_id"`
	AttemptNo    int        `json:"attempt_no"`
	Score        *float64   `json:"score,omitempty"`
	EndReason    string     `json:"end_reason,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

type RuleEventPayload struct {
	RuleID       uint   `json:"rule_id"`
	AssessmentID uint   `json:"assessment_id"`
	CreatedBy    string `json:"created_by,omitempty"`
}

// EventPublisher is the outbound side of the event bus. Implementations
// must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewEvent stamps the envelope with the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
