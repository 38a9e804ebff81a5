// Package calls implements the per-vendor call dispatch and retry state
// machine, the provider webhook parsing, and the result compiler.
package calls

// CallStatus is the lifecycle status of one VendorCall.
type CallStatus string

const (
	CallPending            CallStatus = "pending"
	CallCalling            CallStatus = "calling"
	CallTranscriptReceived CallStatus = "transcript_received"
	CallAnalyzed           CallStatus = "analyzed"
	CallRetryScheduled     CallStatus = "retry_scheduled"
	CallFailed             CallStatus = "failed"
)

// Terminal reports whether the call has finished for compile-gating purposes.
func (s CallStatus) Terminal() bool {
	return s == CallAnalyzed || s == CallFailed
}

// retryableReasons are provider termination reasons that mean "nobody picked
// up", worth another attempt after a delay.
var retryableReasons = map[string]bool{
	"busy":                    true,
	"no-answer":               true,
	"customer-busy":           true,
	"customer-did-not-answer": true,
	"did-not-pick-up":         true,
}

// ReasonRetryable reports whether a termination reason qualifies for a retry.
func ReasonRetryable(reason string) bool {
	return retryableReasons[reason]
}
