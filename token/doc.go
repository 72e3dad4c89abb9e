// Package token issues and verifies signed, time-bound session tokens.
//
// A token is an HS256 JWT whose signing key is derived from the configured
// secret and a namespace, so tokens minted for one purpose never verify under
// another even when the secret is shared. The namespace is also carried as
// the audience claim.
//
// Tokens are self-verifying: [Codec.Decode] needs no store round-trip. That
// makes the session store a cache rather than the source of truth, and it
// also means a revoked token keeps decoding until it ages out. Revocation is
// enforced by the session manager, not here.
package token
