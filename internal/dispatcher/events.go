package dispatcher

import "github.com/moamenhredeen/apihacker/internal/models"

// State is a step of the run lifecycle: Init, Gating, Running, then Done. Aborted is
// reachable from Init (bad configuration), Gating (server down) and Running (interrupt).
type State int

const (
	StateInit State = iota
	StateGating
	StateRunning
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateGating:
		return "GATING"
	case StateRunning:
		return "RUNNING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// EventType represents the type of dispatch event
type EventType int

const (
	// EventStateChanged is emitted on every state transition
	EventStateChanged EventType = iota
	// EventGating is emitted right before the liveness probe
	EventGating
	// EventSubmitted is emitted, in submission order, for each operation handed to the pool
	EventSubmitted
	// EventCompleted is emitted by a worker when an operation finished
	EventCompleted
)

// Event represents something that happened during a run
type Event struct {
	Type      EventType
	State     State
	Operation models.Operation
	Outcome   *models.Outcome // only for EventCompleted
	Index     int             // 1-based submission counter
	Total     int
	BaseURL   string
	URL       string // base URL + path template, for EventSubmitted
}

// OnEvent is a callback for dispatch events. EventCompleted is delivered from the
// worker goroutines, so the callback must be safe for concurrent use.
type OnEvent func(event Event)

func emit(onEvent OnEvent, event Event) {
	if onEvent != nil {
		onEvent(event)
	}
}
