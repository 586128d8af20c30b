package war

import "fmt"

// NormalizationReason classifies why a payload could not become a snapshot
type NormalizationReason string

const (
	// AmbiguousFactions means the payload did not contain exactly the
	// tracked faction and one opponent
	AmbiguousFactions NormalizationReason = "AmbiguousFactions"
	// TrackedFactionMissing means two factions were present but neither is
	// the tracked one
	TrackedFactionMissing NormalizationReason = "TrackedFactionMissing"
	// MalformedPayload means the payload could not be decoded or lacks a war id
	MalformedPayload NormalizationReason = "MalformedPayload"
	// WarNotFound means a requested historical war is not in the payload
	WarNotFound NormalizationReason = "WarNotFound"
)

// NormalizationError is returned when an upstream war payload cannot be
// reconciled into a WarSnapshot. It is never fatal: callers keep their
// previous state.
type NormalizationError struct {
	Reason NormalizationReason
	WarID  string
	Detail string
	Err    error
}

func (e *NormalizationError) Error() string {
	msg := fmt.Sprintf("war normalization failed (%s)", e.Reason)
	if e.WarID != "" {
		msg += fmt.Sprintf(" for war %s", e.WarID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}
