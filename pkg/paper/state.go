package paper

import "fmt"

// State is the lifecycle position of an import paper.
type State string

const (
	// StateInvoiced is the initial state assigned by submit
	StateInvoiced State = "INVOICED"

	// StateMatched means the exporter has matched the invoice
	StateMatched State = "MATCHED"

	// StateConfirmed means the importer confirmed the matched paper
	StateConfirmed State = "CONFIRMED"

	// StateCleared means customs clearance completed
	StateCleared State = "CLEARED"

	// StateCanceled is terminal; only an idempotent re-cancel is accepted
	StateCanceled State = "CANCELED"

	// StateFinished is terminal
	StateFinished State = "FINISHED"
)

// States lists every state in lifecycle order.
var States = []State{
	StateInvoiced,
	StateMatched,
	StateConfirmed,
	StateCleared,
	StateCanceled,
	StateFinished,
}

// Validate checks if the State is a valid enum value.
func (s State) Validate() error {
	switch s {
	case StateInvoiced, StateMatched, StateConfirmed, StateCleared, StateCanceled, StateFinished:
		return nil
	default:
		return fmt.Errorf("invalid state: %q", s)
	}
}

// IsTerminal reports whether no transition other than a re-cancel leaves s.
func (s State) IsTerminal() bool {
	return s == StateCanceled || s == StateFinished
}

// Action names a lifecycle operation on a paper.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionMatch   Action = "match"
	ActionConfirm Action = "confirm"
	ActionClear   Action = "clear"
	ActionCancel  Action = "cancel"
	ActionFinish  Action = "finish"
)

// Actions lists every action that can appear in a policy.
var Actions = []Action{
	ActionSubmit,
	ActionMatch,
	ActionConfirm,
	ActionClear,
	ActionCancel,
	ActionFinish,
}

// Validate checks if the Action is a valid enum value.
func (a Action) Validate() error {
	for _, known := range Actions {
		if a == known {
			return nil
		}
	}
	return fmt.Errorf("invalid action: %q", a)
}

// transitions is the complete lifecycle graph. Any (state, action) pair
// missing here is an illegal transition.
var transitions = map[State]map[Action]State{
	StateInvoiced: {
		ActionMatch:  StateMatched,
		ActionCancel: StateCanceled,
	},
	StateMatched: {
		ActionConfirm: StateConfirmed,
		ActionCancel:  StateCanceled,
	},
	StateConfirmed: {
		ActionClear:  StateCleared,
		ActionFinish: StateFinished,
		ActionCancel: StateCanceled,
	},
	StateCleared: {
		ActionCancel: StateCanceled,
	},
	StateCanceled: {
		ActionCancel: StateCanceled,
	},
	StateFinished: {},
}

// CanReach reports whether some sequence of actions leads from s to target.
// Every state reaches itself.
func (s State) CanReach(target State) bool {
	seen := map[State]bool{s: true}
	queue := []State{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		for _, next := range transitions[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// nextState looks up the edge leaving from for action.
func nextState(from State, action Action) (State, bool) {
	to, ok := transitions[from][action]
	return to, ok
}
