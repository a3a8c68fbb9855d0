// Package provider implements the capability registry shared by required
// actions and credential signers.
//
// Many variant implementations share one operation contract and are selected
// by a runtime type identifier. The registry is an explicit registration
// table populated from static configuration at startup — no reflective
// scanning, no runtime discovery. After [Registry.Freeze] every lookup is a
// plain map access.
//
// # What this package must NOT do
//
//   - Accept registrations after Freeze.
//   - Perform I/O or hold per-session state in provider instances.
package provider
