// internal/lobby/errors.go
package lobby

import "errors"

// Kind classifies service errors so the transport can map them onto its own
// status signaling.
type Kind int

const (
	// KindBadRequest covers missing or invalid request fields and
	// unverifiable tokens.
	KindBadRequest Kind = iota
	// KindNotFound covers absent lobbies and participants.
	KindNotFound
	// KindForbidden covers capacity limits and leader-only actions attempted
	// by non-leaders.
	KindForbidden
)

// Error is a lifecycle operation failure with a human-readable reason.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func badRequest(reason string) *Error {
	return &Error{Kind: KindBadRequest, Reason: reason}
}

func notFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func forbidden(reason string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

// KindOf extracts the service error kind, if err is one.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
