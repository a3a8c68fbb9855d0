package keycloak

import (
	"context"
	"time"

	"github.com/tullisdebbi6/keycloak/action"
	"github.com/tullisdebbi6/keycloak/credential"
	"github.com/tullisdebbi6/keycloak/internal/events"
	"github.com/tullisdebbi6/keycloak/internal/flows"
	"github.com/tullisdebbi6/keycloak/provider"
	"github.com/tullisdebbi6/keycloak/session"
	"github.com/tullisdebbi6/keycloak/token"
)

// Engine orchestrates authentication sessions and required actions. Build
// one through [Builder]; all methods are safe for concurrent use.
type Engine struct {
	config Config

	store   *session.Store
	tokens  *token.Manager
	actions *provider.Registry[action.Provider]
	signers *provider.Registry[credential.Signer]
	flows   flows.Service
	events  *events.Dispatcher

	policy   PolicySource
	mandated MandatedActionSource

	// clock is overridable in tests; nil means time.Now.
	clock func() time.Time
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func (e *Engine) emit(ctx context.Context, event events.Event) {
	e.events.Emit(ctx, event)
}

func (e *Engine) mandatedActions(ctx context.Context, realmID, userID string) ([]string, error) {
	if e.mandated == nil {
		return nil, nil
	}
	return e.mandated.MandatedActions(ctx, realmID, userID)
}

// EventsDropped reports how many events the dispatcher discarded because
// its buffer was full.
func (e *Engine) EventsDropped() uint64 {
	return e.events.Dropped()
}

// Health reports Redis availability and round-trip latency.
func (e *Engine) Health(ctx context.Context) (time.Duration, error) {
	return e.store.Ping(ctx)
}

// Close stops the event dispatcher after draining buffered events. The
// engine must not be used afterwards.
func (e *Engine) Close() {
	e.events.Close()
}
