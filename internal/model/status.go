package model

// Status represents the lifecycle state of an operation
type Status string

const (
	// StatusIdle means the operation has been created but not started
	StatusIdle Status = "Idle"

	// StatusWorking means the operation's worker is running
	StatusWorking Status = "Working"

	// StatusPaused means the operation is suspended; conversion
	// operations never enter this state, other operation kinds may
	StatusPaused Status = "Paused"

	// StatusCanceled means the operation was stopped before finishing
	StatusCanceled Status = "Canceled"

	// StatusFailed means the operation ended with an error
	StatusFailed Status = "Failed"

	// StatusSucceeded means the operation finished without error
	StatusSucceeded Status = "Succeeded"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is final. A terminal operation
// never changes status again.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled || s == StatusFailed || s == StatusSucceeded
}

// DisplayText returns the observer-facing text for a status
func (s Status) DisplayText() string {
	switch s {
	case StatusCanceled:
		return "Canceled"
	case StatusFailed:
		return "Failed"
	case StatusSucceeded:
		return "Completed"
	default:
		return "???"
	}
}
