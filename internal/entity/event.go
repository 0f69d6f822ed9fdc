package entity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Routing keys of the events the service publishes.
const (
	EventSurveyCreated     = "survey.created"
	EventSurveyDeleted     = "survey.deleted"
	EventResponseSubmitted = "response.submitted"
	EventResponseOrphaned  = "response.orphaned"
)

type (
	// Event is the envelope of every message on the broker
	Event struct {
		ID        string    `json:"id"`
		Payload   []byte    `json:"payload"`
		Type      string    `json:"type"`
		Timestamp time.Time `json:"timestamp"`
	}

	// SurveyRef is the payload of events that only point at a survey
	SurveyRef struct {
		SurveyID string `json:"survey_id"`
	}

	// ResponseRef is the payload of response events
	ResponseRef struct {
		SurveyID   string `json:"survey_id"`
		ResponseID string `json:"response_id"`
		Source     Source `json:"source"`
	}
)

func NewEvent(Type string, payload []byte) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Payload:   payload,
		Type:      Type,
		Timestamp: time.Now(),
	}
}

func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event_id is nil")
	}

	if e.Payload == nil {
		return errors.New("payload is nil")
	}

	if e.Type == "" {
		return errors.New("type is nil")
	}

	return nil
}

// SurveyID extracts the survey id carried by either payload shape.
func (e *Event) SurveyID() (uuid.UUID, error) {
	var ref SurveyRef
	if err := json.Unmarshal(e.Payload, &ref); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(ref.SurveyID)
}
