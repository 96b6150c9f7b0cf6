package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/schema"
	"github.com/jcolombo/paymo/internal/ui"
)

var schemaCmd = &cobra.Command{
	Use:     "schema [entity]",
	Short:   "Describe the known resource types",
	GroupID: "system",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return printRegistry(registry)
		}
		entity, err := resolveEntity(registry, args[0])
		if err != nil {
			return err
		}
		d, _ := registry.Get(entity)
		return printDescriptor(d)
	},
}

func capabilityList(c schema.Capabilities) string {
	var ops []string
	for _, op := range []struct {
		name string
		off  bool
	}{
		{"list", c.NoList}, {"fetch", c.NoFetch}, {"create", c.NoCreate},
		{"update", c.NoUpdate}, {"delete", c.NoDelete},
	} {
		if !op.off {
			ops = append(ops, op.name)
		}
	}
	return strings.Join(ops, ",")
}

func printRegistry(r *schema.Registry) error {
	if jsonOutput {
		out := make([]map[string]any, 0)
		for _, key := range r.Keys() {
			d, _ := r.Get(key)
			out = append(out, map[string]any{"key": d.Key, "path": d.Path, "label": d.Label, "operations": capabilityList(d.Capabilities)})
		}
		return printJSON(out)
	}

	tbl := ui.NewTable(os.Stdout, "KEY", "PATH", "LABEL", "OPERATIONS")
	for _, key := range r.Keys() {
		d, _ := r.Get(key)
		tbl.AddRow(d.Key, d.Path, d.Label, capabilityList(d.Capabilities))
	}
	tbl.Render()
	return nil
}

func printDescriptor(d *schema.Descriptor) error {
	if jsonOutput {
		return printJSON(d)
	}

	pairs := [][2]string{
		{"key", d.Key},
		{"path", d.Path},
		{"operations", capabilityList(d.Capabilities)},
	}
	if len(d.Required) > 0 {
		pairs = append(pairs, [2]string{"required", strings.Join(d.Required, ", ")})
	}
	if !d.Precondition.IsZero() {
		var parts []string
		if len(d.Precondition.AnyOf) > 0 {
			parts = append(parts, "any of "+strings.Join(d.Precondition.AnyOf, ", "))
		}
		if len(d.Precondition.Paired) > 0 {
			parts = append(parts, "all of "+strings.Join(d.Precondition.Paired, ", "))
		}
		pairs = append(pairs, [2]string{"list filter", strings.Join(parts, "; ")})
	}
	ui.KeyValues(os.Stdout, pairs)

	fmt.Println()
	fields := ui.NewTable(os.Stdout, "FIELD", "TYPE", "ACCESS", "OPERATORS")
	for _, name := range d.FieldNames() {
		f, _ := d.Field(name)
		access := "read-write"
		switch {
		case f.CreateOnly:
			access = "create-only"
		case f.ReadOnly:
			access = "read-only"
		}
		ops := ""
		if rule, ok := d.FilterRules[name]; ok {
			if len(rule.Allowed) > 0 {
				ops = strings.Join(rule.Allowed, " ")
			}
			if len(rule.Disallowed) > 0 {
				ops = strings.TrimSpace(ops + " not: " + strings.Join(rule.Disallowed, " "))
			}
		}
		fields.AddRow(name, f.Type, access, ops)
	}
	fields.Render()

	if names := d.IncludeNames(); len(names) > 0 {
		fmt.Println()
		incs := ui.NewTable(os.Stdout, "INCLUDE", "ENTITY", "SHAPE")
		for _, name := range names {
			inc, _ := d.Include(name)
			shape := "single"
			if inc.Collection {
				shape = "list"
			}
			incs.AddRow(name, inc.Entity, shape)
		}
		incs.Render()
	}
	return nil
}
