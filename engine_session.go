package keycloak

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tullisdebbi6/keycloak/internal/events"
	"github.com/tullisdebbi6/keycloak/internal/flows"
)

// CreateSession starts a root authentication session for the realm and
// returns it together with the signed cookie value that references it.
func (e *Engine) CreateSession(ctx context.Context, realmID string) (*RootSession, string, error) {
	root, err := e.store.Create(ctx, realmID)
	if err != nil {
		return nil, "", err
	}
	return root, e.tokens.Encode(root.RootID), nil
}

// EncodeSessionID signs a root session id into its cookie form.
func (e *Engine) EncodeSessionID(rootID string) string {
	return e.tokens.Encode(rootID)
}

// DecodeSessionID validates a cookie value and returns the root session id.
// With requireActive, the id must also resolve to a live session. Malformed
// structure, signature mismatch, and unknown ids all yield
// [ErrSessionNotFound]; callers cannot distinguish them.
func (e *Engine) DecodeSessionID(ctx context.Context, realmID, cookie string, requireActive bool) (string, error) {
	rootID, ok := e.tokens.Decode(cookie)
	if !ok {
		return "", ErrSessionNotFound
	}
	if requireActive {
		if _, err := e.store.Get(ctx, realmID, rootID); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return "", ErrSessionNotFound
			}
			return "", err
		}
	}
	return rootID, nil
}

// ResolveSession validates a cookie value and loads the live root session it
// references.
func (e *Engine) ResolveSession(ctx context.Context, realmID, cookie string) (*RootSession, error) {
	rootID, ok := e.tokens.Decode(cookie)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.store.Get(ctx, realmID, rootID)
}

// GetSession loads a live root session by raw id. Prefer [ResolveSession]
// for anything carried in from a request.
func (e *Engine) GetSession(ctx context.Context, realmID, rootID string) (*RootSession, error) {
	return e.store.Get(ctx, realmID, rootID)
}

// CreateTab attaches a new tab sub-session for a client to an existing root
// and returns its id.
func (e *Engine) CreateTab(ctx context.Context, realmID, rootID, clientID string) (string, error) {
	tabID := uuid.NewString()
	_, err := e.store.Mutate(ctx, realmID, rootID, func(r *RootSession) error {
		r.AddTab(&TabSession{
			TabID:    tabID,
			ClientID: clientID,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return tabID, nil
}

// MarkAuthenticated records a successful credential verification on a tab:
// it sets the principal and a fresh authTime, clears any staleness flag,
// enqueues the user's mandated required actions, and emits a login event.
// An interrupted required-action queue survives and resumes at its cursor.
func (e *Engine) MarkAuthenticated(ctx context.Context, realmID, rootID, tabID, clientID, userID string) error {
	return e.flows.MarkAuthenticated(ctx, realmID, rootID, tabID, clientID, userID)
}

// CheckReAuth evaluates the realm's re-authentication policy against a tab.
// A true result flags the tab: begin/complete refuse with
// [ErrReAuthRequired] until [MarkAuthenticated] runs again, and the pending
// action queue is preserved throughout.
func (e *Engine) CheckReAuth(ctx context.Context, realmID, rootID, tabID string) (bool, error) {
	p, err := e.policy.ReAuthPolicy(ctx, realmID)
	if err != nil {
		return false, err
	}
	return e.flows.CheckReAuth(ctx, realmID, rootID, tabID, flows.Policy{
		MaxAuthAge:    p.MaxAuthAge,
		HasMaxAuthAge: p.HasMaxAuthAge,
	})
}

// RemoveTab deletes one tab. Removing the last tab removes the root too.
func (e *Engine) RemoveTab(ctx context.Context, realmID, rootID, tabID string) error {
	return e.store.RemoveTab(ctx, realmID, rootID, tabID)
}

// Logout removes a root session and emits a logout event per authenticated
// principal. Idempotent: a second call on the same id is a no-op.
func (e *Engine) Logout(ctx context.Context, realmID, rootID string) error {
	root, err := e.store.Get(ctx, realmID, rootID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if err := e.store.RemoveRoot(ctx, realmID, rootID); err != nil {
		return err
	}

	for _, userID := range root.UserIDs() {
		e.emit(ctx, events.Event{
			Timestamp: e.now(),
			Type:      events.TypeLogout,
			RealmID:   realmID,
			UserID:    userID,
			SessionID: rootID,
		})
	}
	return nil
}

// UserSessionsExcept lists the user's other live root session ids.
func (e *Engine) UserSessionsExcept(ctx context.Context, realmID, userID, exceptRootID string) ([]string, error) {
	return e.store.ListUserSessionsExcept(ctx, realmID, userID, exceptRootID)
}
