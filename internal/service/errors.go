package service

import "errors"

var (
	// ErrValidation marks malformed input: bad filter, sort, pagination
	// or share parameters. No writes are attempted.
	ErrValidation = errors.New("invalid request")

	// ErrIDRequired is a validation failure for an empty document id.
	ErrIDRequired = errors.New("id is required")

	// ErrNotFound means the referenced document is absent from the
	// primary store.
	ErrNotFound = errors.New("document not found")

	// ErrUnauthorized means the caller is neither owner, admin, nor a
	// share-grant holder with sufficient permission.
	ErrUnauthorized = errors.New("insufficient permission")

	// ErrSearchUnavailable is a retryable read-path failure: the search
	// engine could not be queried. The router never falls back to an
	// unscoped primary-store scan.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrHydrationFailed is a retryable read-path failure: ids came back
	// from the index but the primary store could not be read. Partial
	// hydration is treated as full failure; no degraded page is returned.
	ErrHydrationFailed = errors.New("failed to hydrate search results")
)
