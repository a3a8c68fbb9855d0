package session

// ActionStatus is the lifecycle state of a single required-action step.
type ActionStatus uint8

const (
	// ActionPending means the step is queued and has not started.
	ActionPending ActionStatus = iota
	// ActionInProgress means the step is the active step of its tab.
	ActionInProgress
	// ActionSuccess means the step completed successfully.
	ActionSuccess
	// ActionCancelled means the step was cancelled by the user.
	ActionCancelled
	// ActionCompleting means one completion attempt has claimed the step and
	// is running its domain logic. A crash mid-completion leaves the step
	// here until the session's absolute lifetime reclaims it.
	ActionCompleting
)

// ActionOrigin records who requested a required-action step.
type ActionOrigin uint8

const (
	// OriginUserMandated marks steps persisted on the user record. They can
	// never be cancelled.
	OriginUserMandated ActionOrigin = iota
	// OriginApplicationInitiated marks steps requested by a relying
	// application for the current login only.
	OriginApplicationInitiated
)

// ActionStep is one entry in a tab's required-action queue. Origin is part of
// the serialized form so cancellation rules survive restarts and replication.
type ActionStep struct {
	Type                string
	Status              ActionStatus
	Origin              ActionOrigin
	LogoutOtherSessions bool
}

// TabSession is a per-client-interaction sub-record of a root session. It
// references its root by id only; the root owns the tab through its Tabs map.
type TabSession struct {
	TabID    string
	RootID   string
	ClientID string

	// UserID is set once the principal is established.
	UserID string

	// AuthTime is the Unix time of the last successful credential
	// verification. Zero until the tab authenticates.
	AuthTime int64

	RequiresReAuth bool

	Steps  []ActionStep
	Cursor uint16
}

// CurrentStep returns the step at the cursor, or nil when the queue is drained.
func (t *TabSession) CurrentStep() *ActionStep {
	if int(t.Cursor) >= len(t.Steps) {
		return nil
	}
	return &t.Steps[t.Cursor]
}

// PendingCount returns the number of steps at or past the cursor that have not
// reached a terminal status.
func (t *TabSession) PendingCount() int {
	n := 0
	for i := int(t.Cursor); i < len(t.Steps); i++ {
		if t.Steps[i].Status != ActionSuccess && t.Steps[i].Status != ActionCancelled {
			n++
		}
	}
	return n
}

// RootSession is the server-side record of an in-progress login transaction.
// Tabs are owned exclusively by their root, keyed by tab id. A root with zero
// tabs is eligible for removal.
type RootSession struct {
	RootID  string
	RealmID string

	CreatedAt    int64
	LastAccessAt int64
	ExpiresAt    int64

	Tabs map[string]*TabSession
}

// Tab returns the tab with the given id, or nil.
func (r *RootSession) Tab(tabID string) *TabSession {
	if r.Tabs == nil {
		return nil
	}
	return r.Tabs[tabID]
}

// AddTab attaches a tab to the root, replacing any tab with the same id.
func (r *RootSession) AddTab(t *TabSession) {
	if r.Tabs == nil {
		r.Tabs = make(map[string]*TabSession)
	}
	t.RootID = r.RootID
	r.Tabs[t.TabID] = t
}

// UserIDs returns the distinct authenticated principals across all tabs.
func (r *RootSession) UserIDs() []string {
	seen := make(map[string]struct{}, len(r.Tabs))
	out := make([]string, 0, len(r.Tabs))
	for _, t := range r.Tabs {
		if t.UserID == "" {
			continue
		}
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		out = append(out, t.UserID)
	}
	return out
}
