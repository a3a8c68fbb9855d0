// Package session provides Redis-backed persistence and compact binary
// encoding for root authentication sessions and their tab sub-sessions.
//
// # Binary encoding
//
// Root sessions are stored as a versioned binary blob (version byte,
// length-prefixed strings, big-endian fixed-width integers). Tabs are encoded
// in tab-id order so the blob is deterministic for identical state. Step
// origin is part of the encoding: cancellation rules must survive process
// restarts and replicated storage.
//
// # Ownership model
//
// A [RootSession] owns its [TabSession] values through an id-keyed map; tabs
// hold only their root's id, never a pointer back. Removing the last tab of a
// root removes the root (cascade), and a removed root can never be observed
// again through [Store.Get].
//
// # Concurrency
//
// All per-root mutations run inside optimistic WATCH transactions with a
// bounded retry budget; exhausted retries surface as [ErrConflict] rather
// than silently dropping an update.
//
// # What this package must NOT do
//
//   - Import the root package, provider, action, or credential (no upward imports).
//   - Decide required-action sequencing or re-authentication policy.
//   - Interpret or verify signed cookie identifiers — that belongs to token.
package session
