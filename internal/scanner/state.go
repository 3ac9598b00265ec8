package scanner

import (
	"fmt"
	"time"
)

// State is a step of the scan state machine.
type State int

const (
	StateInit State = iota
	StateContextCreated
	StateAuthenticated
	StateCrawled
	StatePassiveDrained
	StateActiveScanned
	StateComplete
	StateFailed
)

var stateNames = map[State]string{
	StateInit:           "init",
	StateContextCreated: "context_created",
	StateAuthenticated:  "authenticated",
	StateCrawled:        "crawled",
	StatePassiveDrained: "passive_drained",
	StateActiveScanned:  "active_scanned",
	StateComplete:       "complete",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == StateComplete || s == StateFailed }

// Transition is one state change, passed to OnTransition listeners.
type Transition struct {
	From State
	To   State
	At   time.Time
	Err  error
}

// Progress is one status poll of a bounded phase. Value is a percentage
// for the spider and active phases and the remaining record count for the
// passive phase.
type Progress struct {
	Phase   string
	Attempt int
	Value   int
}

// Scan phases name the step a failure happened in.
const (
	PhaseValidate       = "validate"
	PhaseContext        = "context"
	PhaseAuthentication = "authentication"
	PhasePolicy         = "policy"
	PhaseSpider         = "spider"
	PhasePassive        = "passive"
	PhaseActive         = "active"
	PhaseAlerts         = "alerts"
)
