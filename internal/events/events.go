package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event type identifiers emitted by the orchestration engine.
const (
	TypeLogin                   = "login"
	TypeLogout                  = "logout"
	TypeRequiredActionCancelled = "required_action_cancelled"
	TypeUpdateCredential        = "update_credential"
	TypeAuthenticationComplete  = "authentication_complete"
)

// Detail keys used across event types.
const (
	DetailAction                    = "action"
	DetailCredentialType            = "credential_type"
	DetailStatus                    = "status"
	DetailTriggeredByRequiredAction = "logout_triggered_by_required_action"
)

// Event is the canonical record handed to sinks. Emission is advisory:
// a lost or dropped event never rolls back the session transition that
// produced it.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	RealmID   string            `json:"realm_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	ClientID  string            `json:"client_id,omitempty"`
	Error     string            `json:"error,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Sink receives emitted events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
