package autocheck

// State is a step of one auto-check run.
type State int

const (
	StateFetching State = iota
	StateScoring
	StateDeciding
	StateEnacting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateScoring:
		return "scoring"
	case StateDeciding:
		return "deciding"
	case StateEnacting:
		return "enacting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
