// Package repository implements MySQL persistence for accounts and refresh
// tokens.  Sentinel errors defined here let handlers distinguish the failure
// scenarios they must map to distinct HTTP responses: a missing record, a
// duplicate email, a duplicate phone.  Anything else is treated as an
// internal failure.
package repository

import "errors"

// ErrUserNotFound is returned when a lookup by id, credentials or phone
// matches no row.  Handlers on the public auth surface must translate this
// into the same generic response as a password mismatch.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when an insert or update violates the unique
// email index.
var ErrEmailExists = errors.New("email already in use")

// ErrPhoneExists is returned when an insert or update violates the unique
// phone index.
var ErrPhoneExists = errors.New("phone already in use")

// ErrTokenNotFound is returned when a refresh token hash is unknown, already
// revoked or expired.  Callers must not distinguish those cases.
var ErrTokenNotFound = errors.New("refresh token not found")
