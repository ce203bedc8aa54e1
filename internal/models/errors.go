package models

import "errors"

// Request-path errors are surfaced synchronously to the caller; event-path
// errors decide whether a record is retried or dead-lettered.
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInventoryNotFound   = errors.New("inventory record not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlertNotFound       = errors.New("fraud alert not found")

	// ErrUnknownStatus is returned for a status string that does not map to
	// a recognized value. The stored record is left unchanged.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrIllegalTransition is returned when the requested investigation
	// status is not reachable from the current one.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrMalformedEvent marks a record as poison: it is dead-lettered
	// immediately, never retried.
	ErrMalformedEvent = errors.New("malformed event")
)
