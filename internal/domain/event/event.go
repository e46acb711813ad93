package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload carries event details. Values decoded from JSON arrive as float64.
type Payload map[string]interface{}

// String returns the value at key when it is a string
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns the value at key as int64 for any numeric kind the workflow emits
func (p Payload) Int(key string) int64 {
	switch v := p[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Bool returns the value at key when it is a bool
func (p Payload) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Event is something that happened to one application
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	ApplicationID int64     `json:"application_id"`
	ActorID       string    `json:"actor_id"`
	Payload       Payload   `json:"payload"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

// NewEvent starts a new correlation chain rooted at the returned event
func NewEvent(eventType Type, applicationID int64, actorID string, payload Payload) *Event {
	id := uuid.NewString()
	if payload == nil {
		payload = Payload{}
	}
	return &Event{
		ID:            id,
		Type:          eventType,
		ApplicationID: applicationID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: id,
	}
}

// Follow creates an event caused by e. It shares e's application, actor and chain.
func (e *Event) Follow(eventType Type, payload Payload) *Event {
	next := NewEvent(eventType, e.ApplicationID, e.ActorID, payload)
	next.CorrelationID = e.CorrelationID
	return next
}

// With returns a copy of e with key set in its payload
func (e *Event) With(key string, value interface{}) *Event {
	payload := make(Payload, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	clone := *e
	clone.Payload = payload
	return &clone
}
