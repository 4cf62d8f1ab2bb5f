// Package errors provides centralized error definitions for the engine.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Entity resolution errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrPostNotFound indicates a post could not be found.
	ErrPostNotFound = errors.New("post not found")

	// ErrOpportunityNotFound indicates an opportunity could not be found.
	ErrOpportunityNotFound = errors.New("opportunity not found")
)

// Validation errors. These are rejected at the trigger boundary before
// any engine invocation.
var (
	// ErrInvalidLimit indicates a negative or otherwise malformed limit.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidMinSources indicates a negative minimum source count.
	ErrInvalidMinSources = errors.New("invalid min sources")

	// ErrInvalidThreshold indicates a similarity threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidRange indicates a date range whose end precedes its start.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidUsageEvent indicates a usage event with a zero timestamp
	// or negative deltas.
	ErrInvalidUsageEvent = errors.New("invalid usage event")
)
