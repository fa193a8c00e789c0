package continuum

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("continuum: no store configured")
	ErrStoreClosed = errors.New("continuum: store closed")

	// Not found errors.
	ErrRunNotFound        = errors.New("continuum: run not found")
	ErrBranchNotFound     = errors.New("continuum: branch not found")
	ErrCheckpointNotFound = errors.New("continuum: checkpoint not found")
	ErrSessionNotFound    = errors.New("continuum: session not found")

	// Resume errors.
	ErrNoCheckpointAvailable = errors.New("continuum: no checkpoint available")
	ErrNoResumableContent    = errors.New("continuum: no resumable content")

	// State errors.
	ErrInvalidState    = errors.New("continuum: invalid state transition")
	ErrBranchNotActive = errors.New("continuum: branch is not active")
	ErrSessionBusy     = errors.New("continuum: session has an active run")
)
