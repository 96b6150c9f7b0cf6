// Package schema holds the per-entity descriptors (fields, includes, filter
// rules) that the include scrubber, the where compiler and the resource
// engine validate against.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// PrimitiveType is the wire-level type a schema field type resolves to.
type PrimitiveType string

const (
	PrimitiveString    PrimitiveType = "string"
	PrimitiveInteger   PrimitiveType = "integer"
	PrimitiveDouble    PrimitiveType = "double"
	PrimitiveBoolean   PrimitiveType = "boolean"
	PrimitiveTimestamp PrimitiveType = "timestamp"
)

// String returns the string representation of the primitive type.
func (p PrimitiveType) String() string {
	return string(p)
}

// WhereOperators is the global set of operators accepted in where conditions.
var WhereOperators = []string{"=", "!=", "<", "<=", ">", ">=", "like", "not like", "in", "not in", "range"}

// HasOperators is the set of cardinality operators accepted in has conditions.
var HasOperators = []string{"=", "!=", "<", "<=", ">", ">="}

// IsWhereOperator reports whether op belongs to WhereOperators.
func IsWhereOperator(op string) bool {
	return contains(WhereOperators, op)
}

// IsHasOperator reports whether op belongs to HasOperators.
func IsHasOperator(op string) bool {
	return contains(HasOperators, op)
}

// ResolveType maps a raw schema type (e.g. "text", "resource:client",
// "enum:draft|sent") to its primitive type and, for enums, the allowed values.
func ResolveType(raw string) (PrimitiveType, []string, error) {
	kind, arg, _ := strings.Cut(raw, ":")
	switch kind {
	case "text", "string", "html", "email", "url":
		return PrimitiveString, nil, nil
	case "integer", "int":
		return PrimitiveInteger, nil, nil
	case "decimal", "double", "float":
		return PrimitiveDouble, nil, nil
	case "boolean", "bool":
		return PrimitiveBoolean, nil, nil
	case "datetime", "date", "timestamp":
		return PrimitiveTimestamp, nil, nil
	case "resource", "collection":
		if arg == "" {
			return "", nil, fmt.Errorf("type %q is missing its target entity", raw)
		}
		return PrimitiveInteger, nil, nil
	case "enum":
		values := splitEnum(arg)
		if len(values) == 0 {
			return "", nil, fmt.Errorf("type %q declares no values", raw)
		}
		return PrimitiveString, values, nil
	case "intEnum":
		values := splitEnum(arg)
		if len(values) == 0 {
			return "", nil, fmt.Errorf("type %q declares no values", raw)
		}
		return PrimitiveInteger, values, nil
	}
	return "", nil, fmt.Errorf("unknown field type %q", raw)
}

func splitEnum(s string) []string {
	var out []string
	for _, v := range strings.Split(s, "|") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Field describes a single scalar field of an entity.
type Field struct {
	Name       string
	Type       string
	ReadOnly   bool
	CreateOnly bool
}

// Primitive returns the field's primitive type, or "" if the type is unknown.
func (f Field) Primitive() PrimitiveType {
	p, _, err := ResolveType(f.Type)
	if err != nil {
		return ""
	}
	return p
}

// EnumValues returns the allowed values of an enum field, or nil.
func (f Field) EnumValues() []string {
	_, values, err := ResolveType(f.Type)
	if err != nil {
		return nil
	}
	return values
}

// IsCollection reports whether the field holds a list of foreign-key ids.
func (f Field) IsCollection() bool {
	return strings.HasPrefix(f.Type, "collection:")
}

// Include describes a related entity (or list of entities) that can be
// requested alongside a primary fetch.
type Include struct {
	Name       string
	Entity     string
	Collection bool
}

// FilterRule restricts the where operators accepted for a field.
// An empty Allowed list means every global operator not in Disallowed passes.
type FilterRule struct {
	Allowed    []string
	Disallowed []string
}

// Capabilities turn off operations a resource type does not support.
type Capabilities struct {
	NoCreate bool `toml:"no_create"`
	NoUpdate bool `toml:"no_update"`
	NoDelete bool `toml:"no_delete"`
	NoList   bool `toml:"no_list"`
	NoFetch  bool `toml:"no_fetch"`
}

// Precondition is the filter gate a collection fetch must pass: at least one
// where condition on an AnyOf field, or conditions on every Paired field.
type Precondition struct {
	AnyOf  []string `toml:"any_of"`
	Paired []string `toml:"paired"`
}

// IsZero reports whether no precondition is declared.
func (p Precondition) IsZero() bool {
	return len(p.AnyOf) == 0 && len(p.Paired) == 0
}

// Descriptor is the schema of one entity type. Descriptors are treated as
// immutable once registered.
type Descriptor struct {
	Key          string
	Label        string
	Path         string
	ResponseKey  string
	NoIdentity   bool
	Required     []string
	Capabilities Capabilities
	Precondition Precondition
	Fields       map[string]Field
	Includes     map[string]Include
	FilterRules  map[string]FilterRule
}

var implicitID = Field{Name: "id", Type: "integer", ReadOnly: true}

// Field returns the named field. "id" is implicitly present unless the
// descriptor is exempted with NoIdentity.
func (d *Descriptor) Field(name string) (Field, bool) {
	if f, ok := d.Fields[name]; ok {
		return f, true
	}
	if name == "id" && !d.NoIdentity {
		return implicitID, true
	}
	return Field{}, false
}

// HasField reports whether name is a scalar field of the entity.
func (d *Descriptor) HasField(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// Include returns the named include.
func (d *Descriptor) Include(name string) (Include, bool) {
	inc, ok := d.Includes[name]
	return inc, ok
}

// HasInclude reports whether name is an include of the entity.
func (d *Descriptor) HasInclude(name string) bool {
	_, ok := d.Includes[name]
	return ok
}

// IsReadOnly reports whether the field is read-only.
func (d *Descriptor) IsReadOnly(name string) bool {
	f, ok := d.Field(name)
	return ok && f.ReadOnly
}

// IsCreateOnly reports whether the field is create-only.
func (d *Descriptor) IsCreateOnly(name string) bool {
	f, ok := d.Field(name)
	return ok && f.CreateOnly
}

// FieldNames returns the sorted field names, including the implicit id.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, 0, len(d.Fields)+1)
	for name := range d.Fields {
		names = append(names, name)
	}
	if _, declared := d.Fields["id"]; !declared && !d.NoIdentity {
		names = append(names, "id")
	}
	sort.Strings(names)
	return names
}

// IncludeNames returns the sorted include names.
func (d *Descriptor) IncludeNames() []string {
	names := make([]string, 0, len(d.Includes))
	for name := range d.Includes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OperatorAllowed reports whether the field's filter rule admits op. The
// global operator set is checked separately by the caller.
func (d *Descriptor) OperatorAllowed(field, op string) bool {
	rule, ok := d.FilterRules[field]
	if !ok {
		return true
	}
	if contains(rule.Disallowed, op) {
		return false
	}
	if len(rule.Allowed) > 0 {
		return contains(rule.Allowed, op)
	}
	return true
}

// EnvelopeKey is the JSON key wrapping this entity's records in responses.
func (d *Descriptor) EnvelopeKey() string {
	if d.ResponseKey != "" {
		return d.ResponseKey
	}
	return d.Path
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
