package keycloak

import (
	"context"
	"time"

	"github.com/tullisdebbi6/keycloak/internal/flows"
	"github.com/tullisdebbi6/keycloak/session"
)

// RootSession is the server-side record of an in-progress login transaction.
// See [session.RootSession].
type RootSession = session.RootSession

// TabSession is the per-client-interaction sub-record of a root session.
type TabSession = session.TabSession

// ActionStep is one entry in a tab's required-action queue.
type ActionStep = session.ActionStep

// ActionOrigin records who requested a required-action step.
type ActionOrigin = session.ActionOrigin

const (
	// OriginUserMandated marks steps persisted on the user record.
	OriginUserMandated = session.OriginUserMandated
	// OriginApplicationInitiated marks steps requested by a relying
	// application for the current login only.
	OriginApplicationInitiated = session.OriginApplicationInitiated
)

// Step outcome values accepted by [Engine.CompleteAction].
const (
	OutcomeSuccess   = flows.OutcomeSuccess
	OutcomeCancelled = flows.OutcomeCancelled
)

// CompleteResult reports what [Engine.CompleteAction] did: the completed
// type, whether the queue drained (terminal), and which sibling sessions a
// terminate-other-sessions action logged out.
type CompleteResult = flows.CompleteResult

// ReAuthPolicy is the realm-level staleness constraint. HasMaxAuthAge
// distinguishes "not configured" from a zero max age.
type ReAuthPolicy struct {
	MaxAuthAge    time.Duration
	HasMaxAuthAge bool
}

// PolicySource supplies per-realm re-authentication policy. Read-only to
// this engine; typically backed by realm configuration storage.
type PolicySource interface {
	ReAuthPolicy(ctx context.Context, realmID string) (ReAuthPolicy, error)
}

// StaticPolicySource answers every realm with the same policy.
type StaticPolicySource struct {
	Policy ReAuthPolicy
}

func (s StaticPolicySource) ReAuthPolicy(context.Context, string) (ReAuthPolicy, error) {
	return s.Policy, nil
}

// MandatedActionSource returns the required-action type ids persisted on a
// user record. These steps can never be cancelled, no matter how an
// identical type was enqueued.
type MandatedActionSource interface {
	MandatedActions(ctx context.Context, realmID, userID string) ([]string, error)
}

// MandatedActionFunc adapts a function to [MandatedActionSource].
type MandatedActionFunc func(ctx context.Context, realmID, userID string) ([]string, error)

func (f MandatedActionFunc) MandatedActions(ctx context.Context, realmID, userID string) ([]string, error) {
	return f(ctx, realmID, userID)
}
