package keycloak

import (
	"io"

	"github.com/tullisdebbi6/keycloak/internal/events"
)

// Event is a structured record emitted by the engine. Emission is advisory:
// sinks are not durable and a lost event never rolls back session state.
type Event = events.Event

// EventSink receives [Event] values from the engine's dispatcher.
type EventSink = events.Sink

// NoOpSink is an [EventSink] that silently discards all events.
type NoOpSink = events.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = events.ChannelSink

// JSONWriterSink is an [EventSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = events.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return events.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return events.NewJSONWriterSink(w)
}

// Event type identifiers emitted by the engine.
const (
	EventLogin                   = events.TypeLogin
	EventLogout                  = events.TypeLogout
	EventRequiredActionCancelled = events.TypeRequiredActionCancelled
	EventUpdateCredential        = events.TypeUpdateCredential
	EventAuthenticationComplete  = events.TypeAuthenticationComplete
)

// Event detail keys.
const (
	DetailAction                    = events.DetailAction
	DetailCredentialType            = events.DetailCredentialType
	DetailStatus                    = events.DetailStatus
	DetailTriggeredByRequiredAction = events.DetailTriggeredByRequiredAction
)
