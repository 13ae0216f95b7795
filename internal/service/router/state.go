// Package router provides the backend selection and failover engine.
package router

import "fmt"

// State represents a position in the per-request routing state machine.
type State int

const (
	// StateStart - request accepted, no backend chosen yet.
	StateStart State = iota
	// StateAttemptLocal - invoking the local backend.
	StateAttemptLocal
	// StateAttemptCloud - invoking the cloud backend.
	StateAttemptCloud
	// StateSuccess - a backend produced transcript text. Terminal.
	StateSuccess
	// StateForbidden - cloud was needed but policy forbids it. Terminal,
	// reached without invoking any further backend.
	StateForbidden
	// StateFailed - every attempted backend failed. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateAttemptLocal:
		return "ATTEMPT_LOCAL"
	case StateAttemptCloud:
		return "ATTEMPT_CLOUD"
	case StateSuccess:
		return "SUCCESS"
	case StateForbidden:
		return "FORBIDDEN"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state ends the request.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateForbidden || s == StateFailed
}
