package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

const (
	// TopicSubmissionEvents carries every transition event.
	TopicSubmissionEvents = "submission.events"

	EventSubmissionCreated = "submission.created"
	EventStatusChanged     = "submission.status_changed"

	eventSource  = "submission-service"
	eventVersion = "1.0"
)

// Event is the envelope published for every submission transition.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// TransitionEvent is the payload carried by submission events. A creation is
// modeled as a transition from the absent status ("") to the initial status.
type TransitionEvent struct {
	SubmissionID uint                    `json:"submission_id"`
	OldStatus    models.SubmissionStatus `json:"old_status"`
	NewStatus    models.SubmissionStatus `json:"new_status"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

// NewSubmissionCreated builds the event raised after a submission is first
// persisted.
func NewSubmissionCreated(submissionID uint, initial models.SubmissionStatus) (*Event, error) {
	return newEvent(EventSubmissionCreated, TransitionEvent{
		SubmissionID: submissionID,
		OldStatus:    "",
		NewStatus:    initial,
		OccurredAt:   time.Now().UTC(),
	})
}

// NewStatusChanged builds the event raised after a persisted status change.
func NewStatusChanged(submissionID uint, old, new models.SubmissionStatus) (*Event, error) {
	return newEvent(EventStatusChanged, TransitionEvent{
		SubmissionID: submissionID,
		OldStatus:    old,
		NewStatus:    new,
		OccurredAt:   time.Now().UTC(),
	})
}

func newEvent(eventType string, payload TransitionEvent) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Transition decodes the event payload.
func (e *Event) Transition() (*TransitionEvent, error) {
	var t TransitionEvent
	if err := json.Unmarshal(e.Data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// EventPublisher is the workflow engine's outbound contract. Publishing is
// fire-and-forget from the engine's perspective: delivery failures are the
// dispatcher's problem, never the caller's.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
