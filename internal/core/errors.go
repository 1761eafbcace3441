package core

// Error codes for domain errors. Transport failures are not represented
// here; they surface as wrapped I/O errors and terminate the session.
const (
	ErrCodeBadState    = "bad_state"
	ErrCodeNotFound    = "not_found"
	ErrCodeDuplicate   = "duplicate"
	ErrCodeFull        = "full"
	ErrCodeInvalidMove = "invalid_move"
	ErrCodeProtocol    = "protocol_error"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

var (
	// ErrBadState reports an invitation or game state machine precondition
	// violation (wrong state, wrong endpoint, self-invitation).
	ErrBadState = &CoreError{Code: ErrCodeBadState, Message: "operation not permitted in current state"}
	// ErrNotFound reports an unknown invitation ID or username.
	ErrNotFound = &CoreError{Code: ErrCodeNotFound, Message: "no such invitation or user"}
	// ErrDuplicate reports a login while already logged in, or under a name
	// held by another live client.
	ErrDuplicate = &CoreError{Code: ErrCodeDuplicate, Message: "already logged in"}
	// ErrFull reports that the client registry is at capacity.
	ErrFull = &CoreError{Code: ErrCodeFull, Message: "client registry is full"}
	// ErrNotLoggedIn reports an operation that requires a logged-in client.
	ErrNotLoggedIn = &CoreError{Code: ErrCodeBadState, Message: "not logged in"}
	// ErrShuttingDown reports a connection arriving after shutdown began.
	ErrShuttingDown = &CoreError{Code: ErrCodeBadState, Message: "server is shutting down"}
)
