// Package session provides key-value backed session persistence, the
// versioned session codec and request-side session id resolution.
//
// # Encoding
//
// A stored session is one schema-version byte followed by a CBOR map with
// integer keys. Field numbers are never reused; new fields get new numbers
// and decoders ignore what they do not know.
//
// # Architecture boundaries
//
// This package owns the [Store], the [Session] and [Principal] models and
// the [Resolver]. It does NOT verify credentials or evaluate permissions;
// those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goRealm or permission (no upward imports).
//   - Store password hashes or other secrets in [Session] fields.
package session
