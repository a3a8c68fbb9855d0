package action

import "context"

// Built-in required-action type identifiers. Type ids are the registry keys
// and also the values persisted in a user's mandated-action set.
const (
	TypeUpdatePassword = "UPDATE_PASSWORD"
	TypeUpdateProfile  = "UPDATE_PROFILE"
	TypeVerifyEmail    = "VERIFY_EMAIL"
)

// Request carries the per-invocation context a provider needs. All session
// state stays in the tab session; providers receive a snapshot and never
// mutate the queue themselves.
type Request struct {
	RealmID  string
	RootID   string
	TabID    string
	ClientID string
	UserID   string

	// LogoutOtherSessions is the caller-supplied choice captured when the
	// step began (e.g. a "log out other sessions" checkbox). Honored only by
	// providers whose Outcome declares TerminateOtherSessions.
	LogoutOtherSessions bool

	// Input holds flow-controller-supplied values for the completing step,
	// such as the new password.
	Input map[string]string
}

// Emission is a follow-up event a provider asks the engine to emit after the
// step's own success event.
type Emission struct {
	Type    string
	Details map[string]string
}

// Outcome is returned by a successful Execute.
type Outcome struct {
	Emissions []Emission

	// TerminateOtherSessions marks action types that carry the "log out
	// other sessions" side effect. The engine acts on it only when the step
	// captured LogoutOtherSessions=true.
	TerminateOtherSessions bool
}

// Provider implements the domain logic of one required-action type. Instances
// are built once at startup through the capability registry and must be safe
// for concurrent use.
type Provider interface {
	// ID returns the action type identifier this provider serves.
	ID() string

	// Begin runs the step's entry behavior when it moves to in-progress.
	Begin(ctx context.Context, req *Request) error

	// Execute runs the step's domain logic on successful completion.
	Execute(ctx context.Context, req *Request) (*Outcome, error)
}

// CredentialUpdater is the external collaborator that persists credential
// changes. Storage format and hashing are outside this module.
type CredentialUpdater interface {
	UpdatePassword(ctx context.Context, realmID, userID, newPassword string) error
}

// ProfileUpdater persists profile attribute changes.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, realmID, userID string, attributes map[string]string) error
}

// Notification is a user-facing message request handed to the dispatcher.
// Content rendering and transport are external concerns.
type Notification struct {
	RealmID  string
	UserID   string
	Template string
	Params   map[string]string
}

// Notifier dispatches user-facing notifications. Delivery is best-effort;
// providers must not fail a step because a notification could not be sent.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
