// Package token signs and validates the cookie-carried session identifier.
//
// The identifier is the trust boundary between browsers and the session
// store: only a value produced by [Manager.Encode] with the process secret
// can resolve to a root authentication session. Validation is a pure
// function; [Manager.Decode] collapses "malformed", "tampered", and "unknown
// encoding" into a single negative result so the cookie can never be used as
// a session-existence oracle.
//
// # What this package must NOT do
//
//   - Touch Redis or any store — liveness checks belong to the Engine.
//   - Return distinguishable errors for different failure modes.
//   - Log or otherwise record rejected values.
package token
