package asset

import "time"

type EventType string

const (
	EventUploaded EventType = "uploaded"
	EventVerified EventType = "verified"
	EventDeleted  EventType = "deleted"
	EventPurged   EventType = "purged"
	EventExported EventType = "exported"
)

type Event struct {
	Type  EventType `json:"type"`
	State State     `json:"state,omitempty"`
	Owner string    `json:"owner,omitempty"`
	File  string    `json:"file,omitempty"`
	At    int64     `json:"at"`
}

// EventPublisher receives an event after every successful mutation.
// Implementations must not block.
type EventPublisher interface {
	Publish(ev *Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(*Event) {}

func NewEvent(eventType EventType, a Asset) *Event {
	return &Event{
		Type:  eventType,
		State: a.State,
		Owner: a.Owner,
		File:  a.Filename,
		At:    time.Now().Unix(),
	}
}
