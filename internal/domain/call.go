package domain

import (
	"fmt"
	"time"
)

// Webhook event names sent by the voice provider.
const (
	EventCallStarted  = "call_started"
	EventCallEnded    = "call_ended"
	EventCallAnalyzed = "call_analyzed"
)

// CallStatusEnded is the provider status for a call that completed normally.
const CallStatusEnded = "ended"

// CallRecord tracks one outbound call from initiation until its transcript
// has been delivered (or delivery has been abandoned). Records live only in
// memory for the lifetime of the process.
type CallRecord struct {
	CallID    string    `json:"call_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// CallDetail is the provider's view of a call, fetched after the call ends.
// Transcript stays empty until the provider finishes post-call processing.
type CallDetail struct {
	CallID              string `json:"call_id"`
	CallStatus          string `json:"call_status"`
	Transcript          string `json:"transcript"`
	DurationMs          int64  `json:"duration_ms"`
	StartTimestamp      int64  `json:"start_timestamp"`
	EndTimestamp        int64  `json:"end_timestamp"`
	DisconnectionReason string `json:"disconnection_reason"`
}

// Duration returns the call duration reported by the provider.
func (d *CallDetail) Duration() time.Duration {
	return time.Duration(d.DurationMs) * time.Millisecond
}

// WebhookCall is the call object embedded in a provider webhook envelope.
// EndTimestamp is a pointer so a missing field is distinguishable from zero.
type WebhookCall struct {
	CallID              string `json:"call_id"`
	CallStatus          string `json:"call_status"`
	DisconnectionReason string `json:"disconnection_reason,omitempty"`
	EndTimestamp        *int64 `json:"end_timestamp,omitempty"`
}

// WebhookEvent is the envelope the provider posts for call lifecycle events.
type WebhookEvent struct {
	Event string       `json:"event"`
	Call  *WebhookCall `json:"call"`
}

// Validate checks the envelope shape. The provider's redelivery mechanism
// keys off the error response this produces, so only genuinely unusable
// envelopes fail here.
func (e *WebhookEvent) Validate() error {
	if e.Event == "" {
		return fmt.Errorf("%w: missing event", ErrPayload)
	}
	if e.Call == nil {
		return fmt.Errorf("%w: missing call object", ErrPayload)
	}
	if e.Call.CallID == "" {
		return fmt.Errorf("%w: missing call_id", ErrPayload)
	}
	return nil
}

// Completed reports whether the call ended normally with a recorded end time.
// Anything else is a failed or abandoned call with nothing to transcribe.
func (e *WebhookEvent) Completed() bool {
	return e.Call != nil &&
		e.Call.CallStatus == CallStatusEnded &&
		e.Call.EndTimestamp != nil
}
