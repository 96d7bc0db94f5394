package tracker

var (
	// ErrLifecycle is returned by accessors called while not streaming.
	ErrLifecycle = &trackerError{"streaming not started, call Start first"}
	// ErrConnection is returned by Start when the stream client cannot start
	// or never reports a live connection.
	ErrConnection    = &trackerError{"connection failed"}
	ErrConfiguration = &trackerError{"invalid configuration"}
	// ErrTimeout is returned when no qualifying sample arrived in time.
	ErrTimeout = &trackerError{"timed out"}
)

type trackerError struct {
	msg string
}

func (e *trackerError) Error() string {
	return e.msg
}
