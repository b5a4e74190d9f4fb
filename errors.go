package green

import "errors"

var (
	// ErrNoWaitHandler is returned by Wait when no handler is
	// registered. The dispatcher never falls back to blocking the
	// calling thread.
	ErrNoWaitHandler = errors.New("green: wait callback not available")

	// ErrPollFailed is returned by Drive and the bundled handlers when a
	// connection reports PollError without a cause.
	ErrPollFailed = errors.New("green: connection poll failed")
)

// BadPollStateError reports a poll result outside the known states.
type BadPollStateError struct {
	State PollState
}

func (e *BadPollStateError) Error() string {
	return "green: bad result from poll: " + e.State.String()
}
