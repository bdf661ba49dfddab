// Package auth holds the credential and session core of quill.
//
// Passwords are never stored, only a credential record: a random 16 byte
// salt followed by an Argon2id key derived from the password and that salt,
// encoded as a single base64 string. Verification re-derives the key and
// compares both keys in constant time.
//
// Sessions are client held. A session is an HS256 signed token carrying the
// user id, the role at login time, the anti-forgery token and the expiry.
// The signing key is generated when the process starts and lives only in
// memory, so restarting the server invalidates every session it minted.
// There is no server side revocation list: logging out means the client
// forgets its token, a copy of it stays valid until it expires.
//
// The role kept in the session is a snapshot. Ordinary routes trust it,
// admin routes always re-read the role from the store.
package auth
