package domain

import "fmt"

// EligibilityRule is one predicate over a (field, date) unit of work.
// It returns ok=false with a human-readable reason when the unit should be
// skipped. Rules run before any network or storage call, so ineligible
// units short-circuit cheaply.
type EligibilityRule func(field Field, date string) (reason string, ok bool)

// NotBeforePlantDate skips any date strictly before the field's plant date.
// Dates are canonical YYYY-MM-DD, so lexical comparison is chronological;
// the plant date itself is eligible.
func NotBeforePlantDate(field Field, date string) (string, bool) {
	if date < field.PlantDate {
		return fmt.Sprintf("field %s not planted yet on %s", field.ID, date), false
	}
	return "", true
}

// EligibilityGate evaluates a chain of rules. Extending eligibility
// (harvest date, data embargo) means appending rules here, not touching
// the state machine.
type EligibilityGate struct {
	rules []EligibilityRule
}

// NewEligibilityGate builds a gate with the default plant-date rule plus
// any extra rules.
func NewEligibilityGate(extra ...EligibilityRule) *EligibilityGate {
	return &EligibilityGate{rules: append([]EligibilityRule{NotBeforePlantDate}, extra...)}
}

// Check runs the rules in order and returns the first ineligibility reason.
func (g *EligibilityGate) Check(field Field, date string) (reason string, ok bool) {
	for _, rule := range g.rules {
		if reason, ok := rule(field, date); !ok {
			return reason, false
		}
	}
	return "", true
}
