package domain

import "errors"

// Ledger error taxonomy. The coordinator guarantees that whenever one of
// these is returned, no partial state was committed. Handlers map them onto
// HTTP status codes.
var (
	// ErrValidation marks malformed input. Never retried.
	ErrValidation = errors.New("invalid trade request")

	// ErrInsufficientFunds marks a buy whose cost exceeds available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound means no portfolio exists for the user yet.
	// The client should call initialize first.
	ErrAccountNotFound = errors.New("portfolio not found")

	// ErrAccountExists is returned by the portfolio store on a duplicate
	// create. The initializer treats it as "already initialized", so it
	// never reaches a caller.
	ErrAccountExists = errors.New("portfolio already initialized")

	// ErrPositionNotFound means no open lot exists for the (user, asset)
	// pair. Internal to the coordinator, which opens a fresh lot.
	ErrPositionNotFound = errors.New("position not found")

	// ErrPersistence marks a storage failure after the transaction was
	// rolled back. Safe for the client to retry.
	ErrPersistence = errors.New("persistence failure")

	// ErrSerialization marks a serializable-transaction conflict
	// (SQLSTATE 40001). Retried inside the coordinator; surfaces only
	// wrapped in ErrPersistence when retries exhaust.
	ErrSerialization = errors.New("serialization conflict")
)
