package green

import "fmt"

// PollState is the progress report of an asynchronous connection
// operation.
type PollState int

const (
	// PollOK means the operation completed and the connection is idle.
	PollOK PollState = iota
	// PollRead means the operation waits for the socket to be readable.
	PollRead
	// PollWrite means the operation waits for the socket to be writable.
	PollWrite
	// PollError means the operation failed. Poll implementations should
	// return the cause as their error.
	PollError
)

func (s PollState) String() string {
	switch s {
	case PollOK:
		return "ok"
	case PollRead:
		return "read"
	case PollWrite:
		return "write"
	case PollError:
		return "error"
	}
	return fmt.Sprintf("PollState(%d)", int(s))
}

// Conn is the view of a connection that a wait handler gets. It
// exposes the socket descriptor to wait on and the means to advance
// the operation in progress, nothing else.
type Conn interface {
	// Fileno returns the descriptor of the connection's socket.
	Fileno() (int, error)
	// Poll advances the asynchronous operation in progress without
	// blocking and reports what it is waiting for.
	Poll() (PollState, error)
}

// Cursor identifies the operation a wait belongs to. Waits that are
// not tied to a specific operation pass a nil Cursor.
type Cursor interface {
	// Operation describes the statement being executed.
	Operation() string
}

// Canceler is implemented by connections able to abort the operation
// in progress. Handlers that observe cancellation use it to ask the
// server to stop, then keep polling until the connection settles.
type Canceler interface {
	Cancel() error
}

func operation(cur Cursor) string {
	if cur == nil {
		return ""
	}
	return cur.Operation()
}
