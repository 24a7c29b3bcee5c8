package admissions

import (
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/City-Bureau/intakechat/pkg/chat"
)

// Slots are the answers collected during the flow
type Slots struct {
	Country *string `json:"country,omitempty"`
	Program *string `json:"program,omitempty"`
	Intake  *string `json:"intake,omitempty"`
}

// Dialogue is the state machine's view of a DialogueContext
type Dialogue struct {
	State State `json:"state"`
	Slots Slots `json:"slots"`
}

// Decision is the outcome of feeding one message to the machine
type Decision struct {
	Next  Dialogue
	Reply string
	// Absorbed is set when the machine ignored the message entirely and
	// nothing may be written back
	Absorbed bool
}

// HasReply reports whether the decision produced a message for the user
func (d Decision) HasReply() bool {
	return d.Reply != ""
}

// Machine decides replies and transitions for the intake flow
type Machine struct {
	localizer *i18n.Localizer
}

// NewMachine is a constructor for Machine structs
func NewMachine(localizer *i18n.Localizer) *Machine {
	return &Machine{localizer: localizer}
}

// Decide returns the next dialogue and reply for an inbound message. It
// doesn't touch storage.
func (m *Machine) Decide(current Dialogue, text string) Decision {
	// A human agent owns the conversation, stay out of the way
	if current.State.IsTerminal() {
		return Decision{Next: current, Absorbed: true}
	}

	next := current
	input := Normalize(text)

	switch current.State {
	case Unset, Start:
		next.State = AskCountry
		return Decision{Next: next, Reply: m.localize("greeting")}
	case AskCountry:
		if !countries.contains(input) {
			return Decision{Next: next, Reply: m.localize("country-unsupported")}
		}
		country := strings.TrimSpace(text)
		next.Slots.Country = &country
		next.State = AskProgram
		return Decision{Next: next, Reply: m.localize("program-prompt", programs)}
	case AskProgram:
		if !programs.contains(input) {
			return Decision{Next: next, Reply: m.localize("program-invalid", programs)}
		}
		next.Slots.Program = &input
		next.State = AskIntake
		return Decision{Next: next, Reply: m.localize("intake-prompt", intakes)}
	case AskIntake:
		if !intakes.contains(input) {
			return Decision{Next: next, Reply: m.localize("intake-invalid", intakes)}
		}
		next.Slots.Intake = &input
		next.State = ReadyForAdmin
		return Decision{Next: next, Reply: m.localize("handover-prompt")}
	case ReadyForAdmin:
		switch {
		case affirmative.contains(input):
			next.State = AdminHandover
			return Decision{Next: next, Reply: m.localize("handover-confirmed")}
		case negative.contains(input):
			// Only the state resets, collected slots are kept
			next.State = Start
			return Decision{Next: next, Reply: m.localize("handover-declined")}
		default:
			return Decision{Next: next, Reply: m.localize("handover-unclear")}
		}
	}
	return Decision{Next: next}
}

func (m *Machine) localize(messageID string, options ...optionSet) string {
	config := &i18n.LocalizeConfig{MessageID: messageID}
	if len(options) > 0 {
		config.TemplateData = map[string]string{"Options": options[0].display}
	}
	return m.localizer.MustLocalize(config)
}

// FromContext converts a stored DialogueContext into a Dialogue
func FromContext(dc *chat.DialogueContext) (Dialogue, error) {
	state, err := ParseState(dc.State)
	if err != nil {
		return Dialogue{}, err
	}
	return Dialogue{
		State: state,
		Slots: Slots{
			Country: dc.InterestedCountry,
			Program: dc.ProgramInterest,
			Intake:  dc.PreferredIntake,
		},
	}, nil
}

// ApplyTo writes the dialogue back onto a stored DialogueContext
func (d Dialogue) ApplyTo(dc *chat.DialogueContext) {
	dc.State = d.State.String()
	dc.InterestedCountry = d.Slots.Country
	dc.ProgramInterest = d.Slots.Program
	dc.PreferredIntake = d.Slots.Intake
}
