package repository

import "errors"

var (
	// ErrNotFound marks a cache miss. Recoverable by fetching.
	ErrNotFound = errors.New("entry not found")

	// ErrNoData means the provider answered but had no rows for the symbol
	// (delisted or unsupported). Terminal, not retried.
	ErrNoData = errors.New("provider returned no data")

	// ErrRateLimited marks a provider rate-limit response. Transient.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrUniverseUnavailable means a universe could not be fetched and no
	// cached copy exists. Fatal for the scan request.
	ErrUniverseUnavailable = errors.New("universe unavailable")

	// ErrUnknownUniverse marks a universe name with no registered source.
	ErrUnknownUniverse = errors.New("unknown universe")
)
