package types

// State is the lifecycle state of a player as seen from the control loop.
type State int

const (
	StateNoState State = iota
	StateOpening
	StateBuffering
	StatePlaying
	StatePaused
	StateStopped
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateNoState:
		return "no_state"
	case StateOpening:
		return "opening"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
