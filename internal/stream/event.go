// Package stream manages release-note generation sessions and the ordered
// event protocol they emit. A session walks a fixed lifecycle (started,
// streaming, finalizing, closed) and publishes a tagged event union over a
// channel that tolerates late sends and double closes, so transport failures
// never corrupt the protocol ordering the client relies on.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/relnotesd/internal/notes"
)

// EventType discriminates the event union on the wire.
type EventType string

const (
	// EventStart opens a session and carries its identifier.
	EventStart EventType = "start"
	// EventProgress carries a batch of raw generation text.
	EventProgress EventType = "progress"
	// EventNotes carries the structured notes, emitted at most once.
	EventNotes EventType = "notes"
	// EventMessage carries human-readable status, used for rejections.
	EventMessage EventType = "message"
	// EventError reports a terminal failure.
	EventError EventType = "error"
	// EventComplete marks a successful end of the session.
	EventComplete EventType = "complete"
)

// Event is the tagged union sent to clients. Exactly one payload field is
// populated per type; Validate enforces the pairing on both encode and decode.
type Event struct {
	Type    EventType              `json:"type"`
	ID      string                 `json:"id,omitempty"`
	Text    string                 `json:"text,omitempty"`
	Notes   *notes.StructuredNotes `json:"notes,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// StartEvent announces a new session with its identifier.
func StartEvent(id string) Event {
	return Event{Type: EventStart, ID: id}
}

// ProgressEvent wraps a batch of raw model output.
func ProgressEvent(text string) Event {
	return Event{Type: EventProgress, Text: text}
}

// NotesEvent wraps the extracted structured notes.
func NotesEvent(n notes.StructuredNotes) Event {
	return Event{Type: EventNotes, Notes: &n}
}

// MessageEvent wraps an informational status line.
func MessageEvent(text string) Event {
	return Event{Type: EventMessage, Text: text}
}

// ErrorEvent wraps a terminal failure description.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// CompleteEvent marks the session as successfully finished.
func CompleteEvent() Event {
	return Event{Type: EventComplete}
}

// Validate checks that the event carries exactly the payload its type
// requires and nothing else.
func (e Event) Validate() error {
	switch e.Type {
	case EventStart:
		if e.ID == "" {
			return fmt.Errorf("start event requires an id")
		}
		if e.Text != "" || e.Notes != nil || e.Message != "" {
			return fmt.Errorf("start event carries only an id")
		}
	case EventProgress:
		if e.Text == "" {
			return fmt.Errorf("progress event requires text")
		}
		if e.ID != "" || e.Notes != nil || e.Message != "" {
			return fmt.Errorf("progress event carries only text")
		}
	case EventNotes:
		if e.Notes == nil {
			return fmt.Errorf("notes event requires notes")
		}
		if e.ID != "" || e.Text != "" || e.Message != "" {
			return fmt.Errorf("notes event carries only notes")
		}
	case EventMessage:
		if e.Text == "" {
			return fmt.Errorf("message event requires text")
		}
		if e.ID != "" || e.Notes != nil || e.Message != "" {
			return fmt.Errorf("message event carries only text")
		}
	case EventError:
		if e.Message == "" {
			return fmt.Errorf("error event requires a message")
		}
		if e.ID != "" || e.Text != "" || e.Notes != nil {
			return fmt.Errorf("error event carries only a message")
		}
	case EventComplete:
		if e.ID != "" || e.Text != "" || e.Notes != nil || e.Message != "" {
			return fmt.Errorf("complete event carries no payload")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Encode validates the event and marshals it to JSON.
func (e Event) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// Decode unmarshals and validates a single event.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
