package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrBroadcastAlreadySent = errors.New("broadcast already sent")
	ErrBroadcastInFlight    = errors.New("broadcast execution already in flight")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrLockNotAcquired      = errors.New("lock not acquired")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidExecContext   = errors.New("invalid execution context")
)
