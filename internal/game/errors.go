package game

import (
	"errors"
	"fmt"
)

// Kind classifies game errors so callers can decide between fixing input,
// surfacing the failure, or retrying later.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidInput: malformed command arguments, caller fixes and retries.
	KindInvalidInput
	// KindInvalidState: command not valid for the round's current status.
	KindInvalidState
	// KindInvalidGuess: guess value outside the allowed range.
	KindInvalidGuess
	// KindDuplicateGuess: second guess from the same address, terminal.
	KindDuplicateGuess
	// KindRoundLocked: submission arrived while the round is not open.
	KindRoundLocked
	// KindNoParticipants: resolution requested with an empty ledger.
	KindNoParticipants
	// KindOracleUnavailable: block data not yet available, admin retries later.
	KindOracleUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidGuess:
		return "invalid_guess"
	case KindDuplicateGuess:
		return "duplicate_guess"
	case KindRoundLocked:
		return "round_locked"
	case KindNoParticipants:
		return "no_participants"
	case KindOracleUnavailable:
		return "oracle_unavailable"
	default:
		return "unknown"
	}
}

// Error is the only error type crossing the game package boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindUnknown
}
