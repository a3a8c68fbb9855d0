// Package keycloak implements an authentication-session and required-action
// orchestration engine: it tracks in-progress login transactions, binds them
// to signed browser cookies, sequences mandatory and application-initiated
// post-authentication steps, decides when re-authentication is required, and
// coordinates the session invalidation and events those steps trigger.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple request-handling goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// This is the public surface. It exposes [Engine], [Builder], [Config], and
// value types. Orchestration lives under internal/; the session model and
// Redis store live in session; the cookie signer in token; the capability
// registry in provider; required-action and credential-signer providers in
// action and credential.
//
// User storage, credential hashing, HTTP handling, protocol marshaling, and
// notification transport are external collaborators consumed through narrow
// interfaces ([action.CredentialUpdater], [action.Notifier],
// [MandatedActionSource], [PolicySource], [EventSink]).
//
// # What this package must NOT do
//
//   - Expose Redis clients, store internals, or blob encoding in its public API.
//   - Initiate network responses — the flow controller owns UI transitions.
//   - Distinguish "invalid cookie" from "unknown session" to callers.
package keycloak
