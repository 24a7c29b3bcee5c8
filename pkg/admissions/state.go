package admissions

import "fmt"

// State is a step of the intake dialogue
type State int

const (
	// Unset is a context that has never been through the flow
	Unset State = iota
	Start
	AskCountry
	AskProgram
	AskIntake
	ReadyForAdmin
	// AdminHandover is absorbing: a human agent owns the conversation
	AdminHandover
)

var stateNames = map[State]string{
	Unset:         "",
	Start:         "START",
	AskCountry:    "ASK_COUNTRY",
	AskProgram:    "ASK_PROGRAM",
	AskIntake:     "ASK_INTAKE",
	ReadyForAdmin: "READY_FOR_ADMIN",
	AdminHandover: "ADMIN_HANDOVER",
}

// String returns the stored name of the state
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState converts a stored state name back into a State
func ParseState(name string) (State, error) {
	for state, stateName := range stateNames {
		if stateName == name {
			return state, nil
		}
	}
	return Unset, fmt.Errorf("unknown dialogue state %q", name)
}

// IsTerminal reports whether the bot stays silent in this state
func (s State) IsTerminal() bool {
	return s == AdminHandover
}
