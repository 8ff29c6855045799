package domain

import "errors"

var (
	// ErrNotFound is returned when no saved location carries the requested id.
	ErrNotFound = errors.New("not found")

	// ErrValidation wraps every input rejection that happens before a write.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence wraps failures of the underlying key-value storage.
	ErrPersistence = errors.New("persistence failed")

	// ErrConfirmationRequired is returned by deletes that were not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrMissingCredentials is returned at call time when the search backend
	// has no credentials configured.
	ErrMissingCredentials = errors.New("search credentials not configured")

	// ErrSearchUpstream wraps transport failures and non-2xx answers from the
	// search backend.
	ErrSearchUpstream = errors.New("search upstream failed")
)
