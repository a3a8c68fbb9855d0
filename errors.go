package keycloak

import (
	"github.com/tullisdebbi6/keycloak/internal/flows"
	"github.com/tullisdebbi6/keycloak/provider"
	"github.com/tullisdebbi6/keycloak/session"
)

// Sentinel errors returned by Engine methods. They share identity with the
// subsystem sentinels so errors.Is works at every layer.
var (
	// ErrSessionNotFound covers malformed cookies, signature mismatches,
	// and ids with no live root session alike. Callers must treat every
	// case as "no session" and start a fresh authentication flow.
	ErrSessionNotFound = session.ErrNotFound

	// ErrTabNotFound is returned when a tab id has no entry under its root.
	ErrTabNotFound = session.ErrTabNotFound

	// ErrConcurrentMutation surfaces after a session mutation lost the
	// optimistic-lock race more times than the retry budget allows.
	ErrConcurrentMutation = session.ErrConflict

	// ErrProviderNotFound is returned when a required-action type or
	// credential format has no registered provider. A configuration error;
	// not retried.
	ErrProviderNotFound = flows.ErrProviderNotFound

	// ErrCancellationNotAllowed rejects cancelling a step whose type is
	// user-mandated. The step and request survive.
	ErrCancellationNotAllowed = flows.ErrCancellationNotAllowed

	// ErrInvalidTransition is returned when begin/complete is called from a
	// step state that does not permit it.
	ErrInvalidTransition = flows.ErrInvalidTransition

	// ErrNoPendingActions is returned by BeginAction on a drained queue.
	ErrNoPendingActions = flows.ErrNoPendingActions

	// ErrReAuthRequired blocks required-action processing while the tab
	// needs fresh credential verification. The queue is preserved.
	ErrReAuthRequired = flows.ErrReAuthRequired

	// ErrRegistryFrozen is returned when providers are registered after Build.
	ErrRegistryFrozen = provider.ErrFrozen
)
