// Package password implements password hashing and verification with Argon2id defaults.
//
// # Output format
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Multi] verifies Argon2id, bcrypt and legacy unsalted MD5 hex digests,
// choosing by the shape of the stored value, and always hashes with its
// primary scheme. [Multi.NeedsUpgrade] reports hashes that should be
// replaced on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Lockout and account
// state are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goRealm package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
