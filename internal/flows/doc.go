// Package flows contains the required-action sequencer and the
// re-authentication policy evaluator as pure-function orchestrators.
//
// Each flow function (RunEnqueue, RunBegin, RunComplete, RunCheckReAuth,
// RunMarkAuthenticated) accepts a typed dependency struct and returns results
// without side effects beyond those dependencies. This keeps the Engine type
// thin and lets the state machine be tested exhaustively with fake stores
// and recording emitters.
//
// # State machine
//
// Per tab: pending steps advance through IN_PROGRESS to SUCCESS or
// CANCELLED, looping while steps remain; a drained queue is terminal and the
// flow controller tears the tab down. At most one step is in progress per
// tab, enforced by the cursor plus the store's per-root optimistic locking.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency interfaces.
package flows
