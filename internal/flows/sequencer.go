package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tullisdebbi6/keycloak/action"
	"github.com/tullisdebbi6/keycloak/internal/events"
	"github.com/tullisdebbi6/keycloak/session"
)

// ErrProviderNotFound is returned when a required-action type id has no
// registered provider. The cursor does not move.
var ErrProviderNotFound = errors.New("required action provider not found")

// ErrCancellationNotAllowed rejects cancellation of a step whose type is
// user-mandated. The step stays in progress; nothing else changes.
var ErrCancellationNotAllowed = errors.New("required action cancellation not allowed")

// ErrInvalidTransition is returned when begin/complete is called from a
// state that does not permit it.
var ErrInvalidTransition = errors.New("invalid required action transition")

// ErrNoPendingActions is returned by begin when the queue is drained.
var ErrNoPendingActions = errors.New("no pending required actions")

// ErrReAuthRequired blocks step processing while the tab is flagged stale.
// Not a failure: the flow controller redirects to fresh credential
// verification and the queue is preserved.
var ErrReAuthRequired = errors.New("re-authentication required")

// Outcome values accepted by RunComplete.
const (
	OutcomeSuccess   = "SUCCESS"
	OutcomeCancelled = "CANCELLED"
)

// CompleteResult reports what a completion did.
type CompleteResult struct {
	StepType string

	// Terminal is set when the queue drained and the flow controller should
	// tear the tab (and possibly the root) down.
	Terminal bool

	// LoggedOutSessions lists sibling root ids invalidated by a
	// terminate-other-sessions action.
	LoggedOutSessions []string

	// LogoutFailures joins sibling invalidations that failed after a retry.
	// The local step transition is already committed; callers must report
	// these, never swallow them.
	LogoutFailures error
}

// RunEnqueue adds a step to a tab's queue. User-mandated steps append;
// application-initiated steps insert at the front of the remaining queue
// unless the same type is already user-mandated, in which case the step
// degrades to user-mandated (keeping the front position, losing cancel
// eligibility). Enqueueing a type that is already pending is a no-op.
func RunEnqueue(ctx context.Context, realmID, rootID, tabID, typeID string, origin session.ActionOrigin, deps Deps) error {
	root, err := deps.Store.Get(ctx, realmID, rootID)
	if err != nil {
		return err
	}
	tab := root.Tab(tabID)
	if tab == nil {
		return session.ErrTabNotFound
	}

	mandated, err := deps.mandatedSet(ctx, realmID, tab.UserID)
	if err != nil {
		return err
	}

	_, err = deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
		t := r.Tab(tabID)
		if t == nil {
			return session.ErrTabNotFound
		}

		for i := int(t.Cursor); i < len(t.Steps); i++ {
			if t.Steps[i].Type == typeID && t.Steps[i].Status != session.ActionCancelled {
				if origin == session.OriginUserMandated && t.Steps[i].Origin == session.OriginApplicationInitiated {
					// The app asked first, the user record mandates it too:
					// the queued step loses cancel eligibility.
					t.Steps[i].Origin = session.OriginUserMandated
				}
				return nil
			}
		}

		step := session.ActionStep{
			Type:   typeID,
			Status: session.ActionPending,
			Origin: origin,
		}

		if origin == session.OriginApplicationInitiated {
			if _, isMandated := mandated[typeID]; isMandated {
				step.Origin = session.OriginUserMandated
			}
			front := int(t.Cursor)
			t.Steps = append(t.Steps, session.ActionStep{})
			copy(t.Steps[front+1:], t.Steps[front:])
			t.Steps[front] = step
			return nil
		}

		t.Steps = append(t.Steps, step)
		return nil
	})
	return err
}

// RunBegin moves the front pending step to in-progress and invokes the
// provider's entry behavior. logoutOthers is captured on the step now and
// consulted again at completion. An unknown type id fails with
// [ErrProviderNotFound] and the cursor stays put.
func RunBegin(ctx context.Context, realmID, rootID, tabID string, logoutOthers bool, deps Deps) (string, error) {
	var began *action.Request
	var prov action.Provider

	_, err := deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
		t := r.Tab(tabID)
		if t == nil {
			return session.ErrTabNotFound
		}
		if t.RequiresReAuth {
			return ErrReAuthRequired
		}

		step := t.CurrentStep()
		if step == nil {
			return ErrNoPendingActions
		}
		if step.Status != session.ActionPending {
			return ErrInvalidTransition
		}

		p, ok := deps.Actions.Resolve(step.Type)
		if !ok {
			return fmt.Errorf("%w: %s", ErrProviderNotFound, step.Type)
		}

		step.Status = session.ActionInProgress
		step.LogoutOtherSessions = logoutOthers

		prov = p
		began = &action.Request{
			RealmID:             realmID,
			RootID:              rootID,
			TabID:               tabID,
			ClientID:            t.ClientID,
			UserID:              t.UserID,
			LogoutOtherSessions: logoutOthers,
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	// Entry behavior runs after the transition commits so CAS retries cannot
	// repeat provider side effects.
	if err := prov.Begin(ctx, began); err != nil {
		return prov.ID(), err
	}
	return prov.ID(), nil
}

// RunComplete finishes the in-progress step of a tab with the given outcome.
//
// Cancellation is rejected for user-mandated types, including types present
// in the user's mandated set regardless of how the step was enqueued. On
// success the completion first claims the step under the store's optimistic
// transaction, so exactly one caller gets to run the provider's domain logic;
// a failed provider releases the claim and the step stays in progress. Only
// after the claimed step commits its terminal status do event emission and,
// for terminate-other-sessions actions with the choice enabled, sibling
// invalidation happen.
func RunComplete(ctx context.Context, realmID, rootID, tabID, outcome string, input map[string]string, deps Deps) (*CompleteResult, error) {
	if outcome != OutcomeSuccess && outcome != OutcomeCancelled {
		return nil, fmt.Errorf("unknown outcome %q", outcome)
	}

	root, err := deps.Store.Get(ctx, realmID, rootID)
	if err != nil {
		return nil, err
	}
	tab := root.Tab(tabID)
	if tab == nil {
		return nil, session.ErrTabNotFound
	}
	step := tab.CurrentStep()
	if step == nil || step.Status != session.ActionInProgress {
		return nil, ErrInvalidTransition
	}

	mandated, err := deps.mandatedSet(ctx, realmID, tab.UserID)
	if err != nil {
		return nil, err
	}
	_, typeMandated := mandated[step.Type]

	result := &CompleteResult{StepType: step.Type}
	stepType := step.Type

	req := &action.Request{
		RealmID:             realmID,
		RootID:              rootID,
		TabID:               tabID,
		ClientID:            tab.ClientID,
		UserID:              tab.UserID,
		LogoutOtherSessions: step.LogoutOtherSessions,
		Input:               input,
	}

	if outcome == OutcomeCancelled {
		updated, err := deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
			t := r.Tab(tabID)
			if t == nil {
				return session.ErrTabNotFound
			}
			s := t.CurrentStep()
			if s == nil || s.Status != session.ActionInProgress || s.Type != stepType {
				return ErrInvalidTransition
			}
			if s.Origin == session.OriginUserMandated || typeMandated {
				return ErrCancellationNotAllowed
			}
			s.Status = session.ActionCancelled
			t.Cursor++
			return nil
		})
		if err != nil {
			return nil, err
		}

		deps.emit(ctx, events.Event{
			Type:      events.TypeRequiredActionCancelled,
			RealmID:   realmID,
			UserID:    req.UserID,
			SessionID: rootID,
			ClientID:  req.ClientID,
			Details:   map[string]string{events.DetailAction: stepType},
		})
		emitTerminal(ctx, updated, tabID, rootID, realmID, req, "cancelled", result, deps)
		return result, nil
	}

	prov, ok := deps.Actions.Resolve(stepType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, stepType)
	}

	// Claim the step before running the provider. A concurrent completion of
	// the same step finds it already claimed and stops here, so the domain
	// side effect runs at most once.
	_, err = deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
		t := r.Tab(tabID)
		if t == nil {
			return session.ErrTabNotFound
		}
		s := t.CurrentStep()
		if s == nil || s.Status != session.ActionInProgress || s.Type != stepType {
			return ErrInvalidTransition
		}
		s.Status = session.ActionCompleting
		req.LogoutOtherSessions = s.LogoutOtherSessions
		return nil
	})
	if err != nil {
		return nil, err
	}

	actionOutcome, execErr := prov.Execute(ctx, req)
	if execErr != nil {
		// Release the claim so the step can be retried.
		_, releaseErr := deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
			t := r.Tab(tabID)
			if t == nil {
				return session.ErrTabNotFound
			}
			if s := t.CurrentStep(); s != nil && s.Status == session.ActionCompleting && s.Type == stepType {
				s.Status = session.ActionInProgress
			}
			return nil
		})
		if releaseErr != nil && !errors.Is(releaseErr, session.ErrNotFound) {
			return nil, errors.Join(execErr, releaseErr)
		}
		return nil, execErr
	}

	updated, err := deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
		t := r.Tab(tabID)
		if t == nil {
			return session.ErrTabNotFound
		}
		s := t.CurrentStep()
		if s == nil || s.Status != session.ActionCompleting || s.Type != stepType {
			return ErrInvalidTransition
		}
		s.Status = session.ActionSuccess
		t.Cursor++
		return nil
	})
	if err != nil {
		return nil, err
	}

	deps.emit(ctx, events.Event{
		Type:      strings.ToLower(stepType),
		RealmID:   realmID,
		UserID:    req.UserID,
		SessionID: rootID,
		ClientID:  req.ClientID,
	})
	for _, em := range actionOutcome.Emissions {
		deps.emit(ctx, events.Event{
			Type:      em.Type,
			RealmID:   realmID,
			UserID:    req.UserID,
			SessionID: rootID,
			ClientID:  req.ClientID,
			Details:   em.Details,
		})
	}
	if actionOutcome.TerminateOtherSessions && req.LogoutOtherSessions {
		result.LoggedOutSessions, result.LogoutFailures = logoutSiblings(ctx, realmID, req.UserID, rootID, stepType, deps)
	}

	emitTerminal(ctx, updated, tabID, rootID, realmID, req, "success", result, deps)
	return result, nil
}

// emitTerminal marks the result terminal and emits the completion event when
// the tab's queue has drained.
func emitTerminal(ctx context.Context, updated *session.RootSession, tabID, rootID, realmID string, req *action.Request, status string, result *CompleteResult, deps Deps) {
	t := updated.Tab(tabID)
	if t == nil || t.PendingCount() != 0 {
		return
	}
	result.Terminal = true
	deps.emit(ctx, events.Event{
		Type:      events.TypeAuthenticationComplete,
		RealmID:   realmID,
		UserID:    req.UserID,
		SessionID: rootID,
		ClientID:  req.ClientID,
		Details:   map[string]string{events.DetailStatus: status},
	})
}

// logoutSiblings invalidates every other live session of the user. Partial
// failure is retried once per sibling and anything still failing is joined
// into the returned error; the completed step stands either way.
func logoutSiblings(ctx context.Context, realmID, userID, currentRootID, triggeredBy string, deps Deps) ([]string, error) {
	siblings, err := deps.Store.ListUserSessionsExcept(ctx, realmID, userID, currentRootID)
	if err != nil {
		return nil, err
	}

	var loggedOut []string
	var failures error
	for _, sibling := range siblings {
		removeErr := deps.Store.RemoveRoot(ctx, realmID, sibling)
		if removeErr != nil {
			removeErr = deps.Store.RemoveRoot(ctx, realmID, sibling)
		}
		if removeErr != nil {
			failures = errors.Join(failures, fmt.Errorf("logout session %s: %w", sibling, removeErr))
			continue
		}
		loggedOut = append(loggedOut, sibling)
		deps.emit(ctx, events.Event{
			Type:      events.TypeLogout,
			RealmID:   realmID,
			UserID:    userID,
			SessionID: sibling,
			Details:   map[string]string{events.DetailTriggeredByRequiredAction: triggeredBy},
		})
	}

	return loggedOut, failures
}

// RunCancelDisplayed reports whether the current or named step type may be
// cancelled by the user. False whenever the type is user-mandated, no matter
// how it was enqueued; repeated calls give the same answer.
func RunCancelDisplayed(ctx context.Context, realmID, rootID, tabID, typeID string, deps Deps) (bool, error) {
	root, err := deps.Store.Get(ctx, realmID, rootID)
	if err != nil {
		return false, err
	}
	tab := root.Tab(tabID)
	if tab == nil {
		return false, session.ErrTabNotFound
	}

	var step *session.ActionStep
	for i := int(tab.Cursor); i < len(tab.Steps); i++ {
		if tab.Steps[i].Type == typeID {
			step = &tab.Steps[i]
			break
		}
	}
	if step == nil {
		return false, ErrNoPendingActions
	}
	if step.Origin == session.OriginUserMandated {
		return false, nil
	}

	mandated, err := deps.mandatedSet(ctx, realmID, tab.UserID)
	if err != nil {
		return false, err
	}
	_, typeMandated := mandated[typeID]
	return !typeMandated, nil
}

// RunMarkAuthenticated records a successful credential verification on a
// tab: principal, fresh authTime, cleared staleness flag. The queue and
// cursor are untouched so interrupted required-action processing resumes
// where it left off. The user's mandated actions are enqueued (idempotently)
// and a login event is emitted.
func RunMarkAuthenticated(ctx context.Context, realmID, rootID, tabID, clientID, userID string, deps Deps) error {
	var mandated []string
	if deps.Mandated != nil {
		var err error
		mandated, err = deps.Mandated(ctx, realmID, userID)
		if err != nil {
			return err
		}
	}

	_, err := deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
		t := r.Tab(tabID)
		if t == nil {
			t = &session.TabSession{TabID: tabID}
			r.AddTab(t)
		}
		if clientID != "" {
			t.ClientID = clientID
		}
		t.UserID = userID
		t.AuthTime = deps.now().Unix()
		t.RequiresReAuth = false

	next:
		for _, typeID := range mandated {
			for i := int(t.Cursor); i < len(t.Steps); i++ {
				if t.Steps[i].Type == typeID && t.Steps[i].Status != session.ActionCancelled {
					if t.Steps[i].Origin == session.OriginApplicationInitiated {
						t.Steps[i].Origin = session.OriginUserMandated
					}
					continue next
				}
			}
			t.Steps = append(t.Steps, session.ActionStep{
				Type:   typeID,
				Status: session.ActionPending,
				Origin: session.OriginUserMandated,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	deps.emit(ctx, events.Event{
		Type:      events.TypeLogin,
		RealmID:   realmID,
		UserID:    userID,
		SessionID: rootID,
		ClientID:  clientID,
	})
	return nil
}
