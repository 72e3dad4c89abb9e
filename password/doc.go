// Package password implements bcrypt hashing and admin credential verification.
//
// # Output format
//
// Hashes are standard modular-crypt bcrypt strings:
//
//	$2a$<cost>$<22-char salt><31-char hash>
//
// [Bcrypt.NeedsRehash] reports hashes produced at a cost other than the
// configured one so callers can re-hash after a successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. It does not mint tokens or
// record sessions; the Manager decides what a successful verification means.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goSession package.
//   - Log plaintext passwords, or say which half of a credential pair was wrong.
package password
