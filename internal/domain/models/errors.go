package models

import "errors"

// Error taxonomy. Insufficient data and transient upstream failures are
// recovered locally (abstain/skip); only configuration errors halt a cycle.
var (
	// ErrInsufficientData means a series is shorter than the required window.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrTransient means an upstream source failed; skip now, retry next cycle.
	ErrTransient = errors.New("transient upstream failure")

	// ErrUnresolved means the realized price was unavailable at evaluation
	// time; the prediction stays pending.
	ErrUnresolved = errors.New("evaluation unresolved")

	// ErrDuplicate means an append would violate a uniqueness invariant
	// (prediction per instrument/cycle, result per prediction).
	ErrDuplicate = errors.New("duplicate row")

	// ErrNoInstruments means no active instruments are registered.
	ErrNoInstruments = errors.New("no active instruments configured")
)
