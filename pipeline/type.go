package pipeline

// runState tracks the loop through its lifecycle:
// idle -> starting -> running -> (stopping | failed) -> idle.
type runState int

const (
	stateIdle runState = iota
	stateStarting
	stateRunning
	stateStopping
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateStarting:
		return "starting"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// stepResult is the tagged outcome of one loop iteration. Expected
// terminations (end of stream, user cancel) are values here, not
// errors; only stepFault carries an error.
type stepResult int

const (
	stepContinue stepResult = iota
	stepEndOfStream
	stepUserCancel
	stepFault
)
