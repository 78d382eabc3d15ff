// Package kv is the remote key-value substrate shared by the session store
// and the authorization cache.
//
// [Redis] is the production backend: every call is bounded to a fixed number
// of attempts, and a failed attempt swaps in a freshly built client (and with
// it a fresh connection pool) before retrying. When attempts run out the call
// fails with [ErrUnavailable] instead of blocking.
//
// [Memory] is a bounded in-process LRU with per-entry expiry, used for
// single-node deployments and tests.
//
// # Architecture boundaries
//
// Values are opaque bytes. This package knows nothing about sessions,
// principals or permissions.
package kv
