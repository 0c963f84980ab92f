package replay

import "call-replay/models"

// Kind tags the payload of a scheduled event.
type Kind int

const (
	KindArrival Kind = iota
	KindAnswered
	KindHangup
)

func (k Kind) String() string {
	switch k {
	case KindArrival:
		return "arrival"
	case KindAnswered:
		return "answered"
	case KindHangup:
		return "hangup"
	default:
		return "unknown"
	}
}

// Event is the action carried by the scheduler. Worker is only meaningful
// for answered events: the historical agent, or the agent chosen by queue
// advancement.
type Event struct {
	Kind   Kind
	Call   *models.Call
	Worker models.WorkerID
}
