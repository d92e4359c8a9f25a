package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the errors that end a run.
type ErrorKind int

const (
	ErrorKindActionFailed ErrorKind = iota
	ErrorKindContractViolation
	ErrorKindBudgetExhausted
	ErrorKindUserStop
	ErrorKindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindActionFailed:
		return "action_failed"
	case ErrorKindContractViolation:
		return "contract_violation"
	case ErrorKindBudgetExhausted:
		return "budget_exhausted"
	case ErrorKindUserStop:
		return "user_stop"
	case ErrorKindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Legacy message markers. Callers that match on substrings depend on them.
const (
	UserStopMarker  = "Agent stopped by user"
	CancelledMarker = "user canceled"
)

type AgentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

func NewUserStopError(detail string) *AgentError {
	msg := UserStopMarker + "."
	if detail != "" {
		msg = UserStopMarker + " " + detail + "."
	}
	return &AgentError{Kind: ErrorKindUserStop, Message: msg}
}

func NewCancelledError(what, reason string) *AgentError {
	msg := fmt.Sprintf("%s %s", CancelledMarker, what)
	if reason != "" {
		msg += ": " + reason
	}
	return &AgentError{Kind: ErrorKindCancelled, Message: msg}
}

func NewUnknownActionError(action string) *AgentError {
	return &AgentError{
		Kind:    ErrorKindContractViolation,
		Message: fmt.Sprintf("Unknown or invalid command action: %s", action),
	}
}

func NewContractViolationError(attempts int, last error) *AgentError {
	return &AgentError{
		Kind:    ErrorKindContractViolation,
		Message: fmt.Sprintf("oracle failed to produce a valid action after %d attempts. Last error", attempts),
		Err:     last,
	}
}

func NewBudgetExhaustedError(maxSteps int) *AgentError {
	return &AgentError{
		Kind:    ErrorKindBudgetExhausted,
		Message: fmt.Sprintf("Agent reached maximum steps (%d) without finishing the goal.", maxSteps),
	}
}

func NewActionFailedError(msg string, err error) *AgentError {
	return &AgentError{Kind: ErrorKindActionFailed, Message: msg, Err: err}
}

// KindOf reports the kind of the first AgentError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

func IsUserStop(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == ErrorKindUserStop
}

func IsCancelled(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == ErrorKindCancelled
}

// IsFatal reports whether err must end the run instead of being fed back
// to the oracle as a failed action.
func IsFatal(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind != ErrorKindActionFailed
}
