package flows

import (
	"context"

	"github.com/tullisdebbi6/keycloak/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Store != nil
}

func (s Service) Enqueue(ctx context.Context, realmID, rootID, tabID, typeID string, origin session.ActionOrigin) error {
	return RunEnqueue(ctx, realmID, rootID, tabID, typeID, origin, s.deps)
}

func (s Service) Begin(ctx context.Context, realmID, rootID, tabID string, logoutOthers bool) (string, error) {
	return RunBegin(ctx, realmID, rootID, tabID, logoutOthers, s.deps)
}

func (s Service) Complete(ctx context.Context, realmID, rootID, tabID, outcome string, input map[string]string) (*CompleteResult, error) {
	return RunComplete(ctx, realmID, rootID, tabID, outcome, input, s.deps)
}

func (s Service) CancelDisplayed(ctx context.Context, realmID, rootID, tabID, typeID string) (bool, error) {
	return RunCancelDisplayed(ctx, realmID, rootID, tabID, typeID, s.deps)
}

func (s Service) MarkAuthenticated(ctx context.Context, realmID, rootID, tabID, clientID, userID string) error {
	return RunMarkAuthenticated(ctx, realmID, rootID, tabID, clientID, userID, s.deps)
}

func (s Service) CheckReAuth(ctx context.Context, realmID, rootID, tabID string, p Policy) (bool, error) {
	return RunCheckReAuth(ctx, realmID, rootID, tabID, p, s.deps)
}
