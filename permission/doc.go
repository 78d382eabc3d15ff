// Package permission evaluates wildcard permissions and caches per-principal
// authorization snapshots.
//
// # Permission strings
//
// A permission is a ':'-separated list of parts, each a ','-separated set
// of tokens. "*" matches any token, and a permission with fewer parts
// grants everything beneath it. Menu URLs such as "/admin/user/list" are
// single-part permissions and match exactly.
//
// # Architecture boundaries
//
// [Cache] talks to a kv.Store; everything else here is pure. The package
// does not know where roles and menus come from.
//
// # What this package must NOT do
//
//   - Import goRealm or session.
//   - Return an empty [Snapshot] when the cache backend fails.
package permission
