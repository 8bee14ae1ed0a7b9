// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to act on a resource owned by someone else, while
// ErrConflict signals that an operation collides with existing state
// (e.g. booking a station slot that is already taken).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as creating a
// reservation for a station/date/time slot that already has a
// non-cancelled reservation. Handlers should translate this into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInsufficientFunds is returned by wallet debits when the wallet
// balance is lower than the requested amount. The conditional UPDATE
// that enforces the non-negative balance invariant reports this by
// touching zero rows. Handlers should translate this into an HTTP
// 400 response.
var ErrInsufficientFunds = errors.New("insufficient funds")
