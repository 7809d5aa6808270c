// Package auth owns the provider's account slot.
//
// The slot holds at most one authenticated account. Status, username and
// identifier are derived from it on read. Credentials are checked by an
// IdentityBackend; the shipped LocalBackend reads bcrypt hashes from a
// YAML accounts file.
package auth
