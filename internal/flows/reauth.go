package flows

import (
	"context"
	"time"

	"github.com/tullisdebbi6/keycloak/session"
)

// Policy is the realm-level re-authentication constraint. HasMaxAuthAge
// distinguishes "not configured" from a zero max age, which forces fresh
// login on every policy check.
type Policy struct {
	MaxAuthAge    time.Duration
	HasMaxAuthAge bool
}

// NeedsFreshLogin decides whether a tab must re-verify credentials before
// required-action processing may continue. Pure and deterministic: stale iff
// the session's absolute expiry elapsed, the tab never authenticated, or the
// configured max auth age is strictly exceeded. Exactly at the boundary is
// still fresh.
func NeedsFreshLogin(now time.Time, authTime int64, sessionExpiresAt int64, p Policy) bool {
	if now.Unix() > sessionExpiresAt {
		return true
	}
	if !p.HasMaxAuthAge {
		return false
	}
	if authTime <= 0 {
		return true
	}
	return now.Sub(time.Unix(authTime, 0)) > p.MaxAuthAge
}

// RunCheckReAuth evaluates the policy against a tab and, when stale, flags
// the tab so begin/complete refuse until a fresh verification lands. The
// queue and cursor survive untouched.
func RunCheckReAuth(ctx context.Context, realmID, rootID, tabID string, p Policy, deps Deps) (bool, error) {
	root, err := deps.Store.Get(ctx, realmID, rootID)
	if err != nil {
		return false, err
	}
	tab := root.Tab(tabID)
	if tab == nil {
		return false, session.ErrTabNotFound
	}

	stale := NeedsFreshLogin(deps.now(), tab.AuthTime, root.ExpiresAt, p)
	if !stale || tab.RequiresReAuth {
		return stale, nil
	}

	_, err = deps.Store.Mutate(ctx, realmID, rootID, func(r *session.RootSession) error {
		t := r.Tab(tabID)
		if t == nil {
			return session.ErrTabNotFound
		}
		t.RequiresReAuth = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
