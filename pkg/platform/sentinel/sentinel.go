package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors:
//   - ErrNotFound: entity does not exist in store
//   - ErrAlreadyUsed: an append-only key was already written
//   - ErrUnavailable: backing store failed or was unreachable
//   - ErrCorrupt: stored bytes could not be decoded
//   - ErrConflict: a concurrent writer updated the entity first
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
	ErrCorrupt     = errors.New("corrupt record")
	ErrConflict    = errors.New("conflict")
)
