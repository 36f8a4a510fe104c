package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors without the
// stores knowing about HTTP or error codes.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: unique constraint would be violated
// - ErrInsufficientStock: a conditional decrement found too few units
// - ErrTxConflict: concurrent transaction conflict; the operation may be retried
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTxConflict        = errors.New("transaction conflict")
)
