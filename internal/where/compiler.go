package where

import (
	"sort"
	"strings"

	"github.com/jcolombo/paymo/internal/model"
	"github.com/jcolombo/paymo/internal/schema"
)

// MaxPathSegments bounds dotted filter paths ("project.client.name").
const MaxPathSegments = 3

// Compiler validates conditions for an entity and renders them. It never
// touches the network.
type Compiler struct {
	registry *schema.Registry
}

// NewCompiler creates a compiler backed by registry.
func NewCompiler(registry *schema.Registry) *Compiler {
	return &Compiler{registry: registry}
}

// Resolve validates cond for entity and returns it with its operand coerced
// to the field's primitive representation and Type/Enum filled in.
func (c *Compiler) Resolve(entity string, cond Condition) (Condition, error) {
	cond.Operator = normalizeOperator(cond.Operator)
	if cond.Kind == KindHas {
		return c.resolveHas(entity, cond)
	}

	if !schema.IsWhereOperator(cond.Operator) {
		return cond, violation(entity, cond.Field, "unknown operator %q", cond.Operator)
	}
	d, field, err := c.resolveField(entity, cond.Field)
	if err != nil {
		return cond, err
	}
	if !d.OperatorAllowed(field.Name, cond.Operator) {
		return cond, violation(entity, cond.Field, "operator %q is not allowed", cond.Operator)
	}

	cond.Type = field.Primitive()
	cond.Enum = field.EnumValues()
	if cond.Type == "" {
		return cond, violation(entity, cond.Field, "field type %q cannot be filtered", field.Type)
	}
	operand, err := coerceOperand(cond)
	if err != nil {
		return cond, violation(entity, cond.Field, "%v", err)
	}
	cond.Operand = operand
	return cond, nil
}

// Compile resolves and renders a single where condition.
func (c *Compiler) Compile(entity string, cond Condition) (string, error) {
	resolved, err := c.Resolve(entity, cond)
	if err != nil {
		return "", err
	}
	return Render(resolved)
}

// CompileAll compiles every where condition (has conditions are skipped),
// sorts the clauses and joins them with " and ". The first invalid
// condition aborts the whole list.
func (c *Compiler) CompileAll(entity string, conds []Condition) (string, error) {
	var clauses []string
	for _, cond := range conds {
		if cond.Kind == KindHas {
			continue
		}
		clause, err := c.Compile(entity, cond)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return Join(clauses), nil
}

// Partition resolves every condition and splits the valid ones from the
// problems, for callers that prefer to drop bad conditions.
func (c *Compiler) Partition(entity string, conds []Condition) ([]Condition, []error) {
	var (
		valid    []Condition
		problems []error
	)
	for _, cond := range conds {
		resolved, err := c.Resolve(entity, cond)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		valid = append(valid, resolved)
	}
	return valid, problems
}

// Join sorts compiled clauses and joins them with " and ".
func Join(clauses []string) string {
	sorted := append([]string(nil), clauses...)
	sort.Strings(sorted)
	return strings.Join(sorted, " and ")
}

// resolveField walks the include chain of a dotted path and returns the
// descriptor owning the final segment together with that field.
func (c *Compiler) resolveField(entity, path string) (*schema.Descriptor, schema.Field, error) {
	d, leaf, err := c.walk(entity, path)
	if err != nil {
		return nil, schema.Field{}, err
	}
	field, ok := d.Field(leaf)
	if !ok {
		return nil, schema.Field{}, violation(entity, path, "unknown field")
	}
	return d, field, nil
}

func (c *Compiler) walk(entity, path string) (*schema.Descriptor, string, error) {
	d, ok := c.registry.Get(entity)
	if !ok {
		return nil, "", violation(entity, path, "unknown entity")
	}
	segs := strings.Split(path, ".")
	if path == "" || len(segs) > MaxPathSegments {
		return nil, "", violation(entity, path, "path must have 1 to %d segments", MaxPathSegments)
	}
	for _, seg := range segs[:len(segs)-1] {
		inc, ok := d.Include(seg)
		if !ok {
			return nil, "", violation(entity, path, "unknown include %q", seg)
		}
		if d, ok = c.registry.Get(inc.Entity); !ok {
			return nil, "", violation(entity, path, "include %q targets unknown entity", seg)
		}
	}
	return d, segs[len(segs)-1], nil
}

func (c *Compiler) resolveHas(entity string, cond Condition) (Condition, error) {
	if !schema.IsHasOperator(cond.Operator) {
		return cond, violation(entity, cond.Field, "operator %q is not valid for has conditions", cond.Operator)
	}
	d, leaf, err := c.walk(entity, cond.Field)
	if err != nil {
		return cond, err
	}
	if !d.HasInclude(leaf) {
		return cond, violation(entity, cond.Field, "has conditions need an include")
	}
	n, err := schema.Coerce(cond.Operand, schema.PrimitiveInteger)
	if err != nil || n == nil || n.(int64) < 0 {
		return cond, violation(entity, cond.Field, "has count must be a non-negative integer")
	}
	cond.Operand = n
	cond.Type = schema.PrimitiveInteger
	return cond, nil
}

func violation(entity, field, format string, args ...any) error {
	return model.Errorf(model.KindSchemaViolation, entity, field, format, args...)
}
