package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the cohort library.
//
// Callers match these with errors.Is. Structured errors below unwrap to
// their sentinel so errors.As can recover the details.
var (
	// ErrInvalidInput is returned when a submission is malformed or ids repeat.
	// Callers can fix the input and resubmit.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternalInvariant is returned when the padded sequence is not a
	// multiple of GroupSize. It indicates a defect, not a bad input.
	ErrInternalInvariant = errors.New("internal invariant violated")

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Publisher errors.
var (
	// ErrPublishFailed is returned when writing a cluster record to NATS KV fails.
	ErrPublishFailed = errors.New("failed to publish cluster record")

	// ErrRecordNotFound is returned when no cluster record exists for a cohort.
	ErrRecordNotFound = errors.New("cluster record not found")
)

// InputError describes an invalid submission.
type InputError struct {
	// Index is the position of the offending submission, or -1 if unknown.
	Index int

	// ID is the offending submission id, possibly empty.
	ID string

	// Reason is a short human readable description.
	Reason string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}

	return fmt.Sprintf("%s: submission %d (id %q): %s", ErrInvalidInput, e.Index, e.ID, e.Reason)
}

// Unwrap returns ErrInvalidInput.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// InvariantError reports a padded sequence whose length is not a multiple
// of GroupSize.
type InvariantError struct {
	// N is the number of real submissions.
	N int

	// NumBots is the number of synthetic submissions that were inserted.
	NumBots int

	// Length is the length of the padded sequence.
	Length int
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: padded length %d is not a multiple of %d (n=%d, bots=%d)",
		ErrInternalInvariant, e.Length, GroupSize, e.N, e.NumBots)
}

// Unwrap returns ErrInternalInvariant.
func (e *InvariantError) Unwrap() error {
	return ErrInternalInvariant
}
