package bot

// State is the lifecycle state of one account control loop.
type State byte

const (
	// Starting acquires and validates the execution session.
	Starting State = iota
	// Warmup observes and scores but suppresses trading actions.
	Warmup
	// Active runs the full decision and execution cycle.
	Active
	// Stopping drains the loop after a cancellation signal.
	Stopping
	// Stopped is the terminal state.
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "STARTING"
	case Warmup:
		return "WARMUP"
	case Active:
		return "ACTIVE"
	case Stopping:
		return "STOPPING"
	case Stopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}
