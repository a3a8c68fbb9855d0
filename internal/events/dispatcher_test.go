package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type countingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *countingSink) Emit(ctx context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		d.Emit(ctx, Event{Type: TypeLogin, Timestamp: time.Unix(1700000000, 0)})
	}
	d.Close()

	if got := sink.count(); got != 10 {
		t.Fatalf("delivered %d events, want 10", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("Dropped = %d, want 0", d.Dropped())
	}
}

func TestDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), Event{Type: TypeLogin})
	if got := sink.count(); got != 0 {
		t.Fatalf("delivered %d events after close, want 0", got)
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("disabled dispatcher should be nil")
	}

	// All methods are nil-safe.
	d.Emit(context.Background(), Event{Type: TypeLogin})
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Type:    TypeUpdateCredential,
		RealmID: "realm-a",
		Details: map[string]string{DetailCredentialType: "password"},
	})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("sink output is not one JSON object per line: %v", err)
	}
	if decoded.Type != TypeUpdateCredential || decoded.Details[DetailCredentialType] != "password" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(2)
	sink.Emit(context.Background(), Event{Type: TypeLogout})

	select {
	case e := <-sink.Events():
		if e.Type != TypeLogout {
			t.Fatalf("event = %+v", e)
		}
	default:
		t.Fatal("event not buffered")
	}
}
