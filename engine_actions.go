package keycloak

import "context"

// BeginOptions captures per-step choices made by the flow controller when a
// step starts.
type BeginOptions struct {
	// LogoutOtherSessions is the "log out other sessions" choice. It is
	// stored on the step and honored at completion by action types that
	// carry the terminate-other-sessions side effect.
	LogoutOtherSessions bool
}

// EnqueueAction adds a required-action step to a tab's queue. User-mandated
// steps append; application-initiated steps insert at the front of the
// remaining queue unless the type is already user-mandated, in which case
// the step degrades to user-mandated and loses cancel eligibility.
func (e *Engine) EnqueueAction(ctx context.Context, realmID, rootID, tabID, typeID string, origin ActionOrigin) error {
	return e.flows.Enqueue(ctx, realmID, rootID, tabID, typeID, origin)
}

// BeginAction moves the front pending step to in-progress and runs the
// provider's entry behavior. Returns the started type id. An unregistered
// type fails with [ErrProviderNotFound] and the cursor does not move; a tab
// flagged stale fails with [ErrReAuthRequired].
func (e *Engine) BeginAction(ctx context.Context, realmID, rootID, tabID string, opts BeginOptions) (string, error) {
	return e.flows.Begin(ctx, realmID, rootID, tabID, opts.LogoutOtherSessions)
}

// CompleteAction finishes the in-progress step with [OutcomeSuccess] or
// [OutcomeCancelled]. input carries flow-controller values the provider
// needs (e.g. the new password). Cancellation of a user-mandated type is
// rejected with [ErrCancellationNotAllowed] and changes nothing. When the
// result is terminal the flow controller should tear down the tab via
// [Engine.RemoveTab] or the whole session via [Engine.Logout].
func (e *Engine) CompleteAction(ctx context.Context, realmID, rootID, tabID, outcome string, input map[string]string) (*CompleteResult, error) {
	return e.flows.Complete(ctx, realmID, rootID, tabID, outcome, input)
}

// CancelDisplayed reports whether the flow controller should offer a cancel
// control for the given queued action type. Always false for user-mandated
// types, regardless of how the step was enqueued; repeated calls agree.
func (e *Engine) CancelDisplayed(ctx context.Context, realmID, rootID, tabID, typeID string) (bool, error) {
	return e.flows.CancelDisplayed(ctx, realmID, rootID, tabID, typeID)
}
