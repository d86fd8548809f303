package database

import "errors"

var (
	// ErrSessionNotFound is returned when an upload session id does not
	// exist, either because it never did or because the session already
	// completed or aborted and was deleted.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrStateConflict is returned when a conditional state transition
	// matched no row because a concurrent writer changed the state first.
	ErrStateConflict = errors.New("session state conflict")

	// ErrAssetNotFound is returned when an asset id does not exist.
	ErrAssetNotFound = errors.New("asset not found")
)
