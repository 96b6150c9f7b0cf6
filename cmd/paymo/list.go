package main

import (
	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/resource"
)

var listCmd = &cobra.Command{
	Use:     "list <entity>",
	Short:   "List resources, optionally filtered",
	GroupID: "resources",
	Example: `  paymo list projects --where "active = true" --include client
  paymo list tasks --where "project_id = 12" --has "entries > 0" --include entries`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wheres, _ := cmd.Flags().GetStringArray("where")
		has, _ := cmd.Flags().GetStringArray("has")
		includes, _ := cmd.Flags().GetStringSlice("include")
		columns, _ := cmd.Flags().GetStringSlice("columns")

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		entity, err := resolveEntity(a.session.Registry, args[0])
		if err != nil {
			return err
		}
		conds, err := parseConditions(wheres, has)
		if err != nil {
			return err
		}

		c, err := a.session.List(ctx, entity, resource.FetchOptions{Include: includes, Where: conds})
		if err != nil {
			return err
		}
		return printCollection(c, columns)
	},
}

func init() {
	listCmd.Flags().StringArrayP("where", "w", nil, `filter condition, e.g. "hours >= 10" (repeatable)`)
	listCmd.Flags().StringArray("has", nil, `relation count filter, e.g. "tasks > 2" (repeatable)`)
	listCmd.Flags().StringSliceP("include", "i", nil, "related resources to include (comma separated)")
	listCmd.Flags().StringSlice("columns", nil, "fields to show in the table")
}
