package domain

import "errors"

// Error taxonomy for the call follow-up pipeline. Callers classify failures
// with errors.Is and map them to HTTP responses or fallback paths.
var (
	// ErrValidation marks malformed or missing user input at intake.
	ErrValidation = errors.New("validation error")

	// ErrPayload marks a malformed webhook envelope from the voice provider.
	ErrPayload = errors.New("payload error")

	// ErrProvider marks a call-creation or transcript-fetch failure.
	ErrProvider = errors.New("provider error")

	// ErrDelivery marks exhaustion of all configured email transports.
	ErrDelivery = errors.New("delivery error")
)
