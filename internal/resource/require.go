package resource

import "strings"

// RequirementSatisfied evaluates a required-field expression against isSet.
// The expression is split first on "||" (exactly one part holds), then on
// "|" (at least one holds), then on "&" (all hold); each part is evaluated
// the same way. A bare name holds when isSet reports it.
func RequirementSatisfied(expr string, isSet func(field string) bool) bool {
	if parts := strings.Split(expr, "||"); len(parts) > 1 {
		n := 0
		for _, p := range parts {
			if RequirementSatisfied(p, isSet) {
				n++
			}
		}
		return n == 1
	}
	if parts := strings.Split(expr, "|"); len(parts) > 1 {
		for _, p := range parts {
			if RequirementSatisfied(p, isSet) {
				return true
			}
		}
		return false
	}
	if parts := strings.Split(expr, "&"); len(parts) > 1 {
		for _, p := range parts {
			if !RequirementSatisfied(p, isSet) {
				return false
			}
		}
		return true
	}
	name := strings.TrimSpace(expr)
	return name != "" && isSet(name)
}

// MissingRequirements returns the descriptor's required expressions the
// entity does not satisfy, in declaration order.
func (e *Entity) MissingRequirements() []string {
	var missing []string
	for _, expr := range e.desc.Required {
		if !RequirementSatisfied(expr, e.isSet) {
			missing = append(missing, expr)
		}
	}
	return missing
}
