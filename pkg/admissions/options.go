package admissions

import (
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Normalize trims and case folds user input before it is matched
func Normalize(text string) string {
	return folder.String(strings.TrimSpace(text))
}

// optionSet is an ordered set of accepted answers
type optionSet struct {
	values  []string
	display string
}

func newOptionSet(display string, values ...string) optionSet {
	return optionSet{values: values, display: display}
}

func (o optionSet) contains(normalized string) bool {
	for _, val := range o.values {
		if val == normalized {
			return true
		}
	}
	return false
}

var (
	countries = newOptionSet("Australia / Japan / Korea", "australia", "japan", "korea")
	programs  = newOptionSet("Diploma / Bachelor / Master / Language", "diploma", "bachelor", "master", "language")
	intakes   = newOptionSet("Jan / May / Sep / Not sure", "jan", "january", "may", "sep", "september", "not sure")

	affirmative = newOptionSet("Yes", "yes", "y", "ok", "okay", "sure")
	negative    = newOptionSet("No", "no", "nah", "not now")
)
