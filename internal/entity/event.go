package entity

import (
	"errors"
	"time"

	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/google/uuid"
)

// Routing keys of the events this service emits.
const (
	EventQuestionnaireCreated  = "questionnaire.created"
	EventQuestionnaireRejected = "questionnaire.rejected"
)

// Event is the broker envelope for both incoming submission requests and
// outgoing questionnaire notifications.
type Event struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(eventType string, payload []byte) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Payload:   payload,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

var (
	ErrEventNoID      = errors.New("event id is empty")
	ErrEventNoPayload = errors.New("event payload is empty")
	ErrEventNoType    = errors.New("event type is empty")
)

func (e *Event) Validate() error {
	switch {
	case e.ID == "":
		return ErrEventNoID
	case len(e.Payload) == 0:
		return ErrEventNoPayload
	case e.Type == "":
		return ErrEventNoType
	}
	return nil
}

type (
	// CreatedPayload announces a persisted questionnaire.
	CreatedPayload struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		QuestionCount int    `json:"question_count"`
	}

	// RejectedPayload carries the error tree of a submission received over
	// the broker.
	RejectedPayload struct {
		RequestID string         `json:"request_id"`
		Errors    errortree.Tree `json:"errors"`
	}
)
