package model

import "errors"

// Errors shared by every store and by the sync coordinator.
//
// Check them with errors.Is:
//
//	if errors.Is(err, model.ErrRemoteUnavailable) {
//	    // leave it to the next reconcile
//	}
var (
	// ErrUnsupportedEntity is returned when an entity cannot be represented
	// in a store's schema (nil value, missing name, negative quantity, ...).
	ErrUnsupportedEntity = errors.New("unsupported entity")

	// ErrLocalStore wraps every durable read or write failure of the local store.
	ErrLocalStore = errors.New("local store failure")

	// ErrNotFound is returned when an update targets an id the store does not hold.
	ErrNotFound = errors.New("list not found")

	// ErrRemote wraps every failure of a remote store call.
	ErrRemote = errors.New("remote store error")

	// ErrRemoteUnavailable marks remote failures caused by connectivity,
	// timeouts or throttling.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)

// IsRemote reports whether err came from the remote mirror.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote) || errors.Is(err, ErrRemoteUnavailable)
}
