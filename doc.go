// Package goRealm authenticates users against an external credential store,
// keeps their sessions in a shared key-value store and answers wildcard
// permission checks from a cached role and menu snapshot.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goRealm is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialStore] and [AuthorizationSource] collaborators and the
// error taxonomy. Leaf concerns live in sub-packages: session (ids, codec,
// store, resolver), permission (wildcards, snapshot cache), filter (path
// rules), idgen (time-ordered ids), kv (store backends) and password
// (hash schemes). HTTP wiring lives in middleware and httpapi.
//
// # What this package must NOT do
//
//   - Persist users, roles or menus; those belong to the collaborators.
//   - Invalidate authorization snapshots on its own. A snapshot may lag role
//     and menu changes for up to Cache.TTL unless InvalidateAuthorization is
//     called.
//   - Report an empty snapshot when the cache is unreachable.
//
// # Lockout
//
// Authenticate keeps a per-account failure count in the credential record.
// Lockout.MaxFailures consecutive failures lock the account; the first
// login attempt after Lockout.LockWindow clears the lock.
package goRealm
