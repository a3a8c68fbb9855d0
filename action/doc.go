// Package action defines the required-action provider contract and the
// built-in providers (UPDATE_PASSWORD, UPDATE_PROFILE, VERIFY_EMAIL).
//
// Providers execute the domain logic of a post-authentication step. They are
// looked up by type identifier through the capability registry, built once at
// startup, and hold provider-scoped configuration only — queue state, the
// cursor, and step status all live in the tab session.
//
// # What this package must NOT do
//
//   - Mutate the required-action queue or touch the session store.
//   - Emit events directly — providers return [Emission] values and the
//     engine emits them after the step transition commits.
//   - Hold per-session mutable state between calls.
package action
