package flows

import (
	"context"
	"time"

	"github.com/tullisdebbi6/keycloak/action"
	"github.com/tullisdebbi6/keycloak/internal/events"
	"github.com/tullisdebbi6/keycloak/provider"
	"github.com/tullisdebbi6/keycloak/session"
)

// SequencerStore is the slice of the session store the sequencer needs.
type SequencerStore interface {
	Get(ctx context.Context, realmID, rootID string) (*session.RootSession, error)
	Mutate(ctx context.Context, realmID, rootID string, fn func(*session.RootSession) error) (*session.RootSession, error)
	RemoveRoot(ctx context.Context, realmID, rootID string) error
	ListUserSessionsExcept(ctx context.Context, realmID, userID, exceptID string) ([]string, error)
}

// MandatedSource returns the required-action type ids persisted on the user
// record. These can never be cancelled.
type MandatedSource func(ctx context.Context, realmID, userID string) ([]string, error)

// Deps groups the sequencer's dependency set. The root engine builds this
// once and delegates request methods to the flow functions.
type Deps struct {
	Store    SequencerStore
	Actions  *provider.Registry[action.Provider]
	Emit     func(ctx context.Context, event events.Event)
	Mandated MandatedSource
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) emit(ctx context.Context, event events.Event) {
	if d.Emit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}
	d.Emit(ctx, event)
}

func (d Deps) mandatedSet(ctx context.Context, realmID, userID string) (map[string]struct{}, error) {
	if d.Mandated == nil || userID == "" {
		return map[string]struct{}{}, nil
	}
	types, err := d.Mandated(ctx, realmID, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set, nil
}
