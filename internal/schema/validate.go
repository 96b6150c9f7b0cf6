package schema

import (
	"fmt"
	"strings"
)

// DescriptorError lists the problems found in a descriptor.
type DescriptorError struct {
	Problems []string
}

func (e *DescriptorError) Error() string {
	return "invalid descriptor: " + strings.Join(e.Problems, "; ")
}

// ValidateDescriptor checks that a descriptor declares every mandatory
// section and that its sections are consistent with each other.
func ValidateDescriptor(d *Descriptor) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if d.Key == "" {
		add("key is required")
	}
	if d.Label == "" {
		add("label is required")
	}
	if d.Path == "" {
		add("path is required")
	}
	if len(d.Fields) == 0 {
		add("at least one field is required")
	}

	for name, f := range d.Fields {
		if _, _, err := ResolveType(f.Type); err != nil {
			add("field %s: %v", name, err)
		}
		if f.CreateOnly && !f.ReadOnly {
			add("field %s: create_only requires read_only", name)
		}
		if _, clash := d.Includes[name]; clash {
			add("%s is both a field and an include", name)
		}
	}
	if _, ok := d.Includes["id"]; ok {
		add("id cannot be an include")
	}

	for name, inc := range d.Includes {
		if inc.Entity == "" {
			add("include %s: entity is required", name)
		}
	}

	for name, rule := range d.FilterRules {
		if !d.HasField(name) {
			add("filter rule for unknown field %s", name)
		}
		for _, op := range append(append([]string{}, rule.Allowed...), rule.Disallowed...) {
			if !IsWhereOperator(op) {
				add("filter rule %s: unknown operator %q", name, op)
			}
		}
	}

	for _, f := range append(append([]string{}, d.Precondition.AnyOf...), d.Precondition.Paired...) {
		if !d.HasField(f) {
			add("precondition references unknown field %s", f)
		}
	}
	if len(d.Precondition.Paired) == 1 {
		add("paired precondition needs at least two fields")
	}

	for _, expr := range d.Required {
		for _, name := range RequirementFields(expr) {
			if !d.HasField(name) {
				add("required expression %q references unknown field %s", expr, name)
			}
		}
	}

	if len(problems) > 0 {
		return &DescriptorError{Problems: problems}
	}
	return nil
}

// RequirementFields returns the field names referenced by a required-field
// expression such as "a&b", "a|b" or "a||b".
func RequirementFields(expr string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(expr, func(r rune) bool { return r == '|' || r == '&' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
