package main

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <entity> <id>",
	Short:   "Show a single resource",
	GroupID: "resources",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		includes, _ := cmd.Flags().GetStringSlice("include")

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
		id, err := parseID(args[1])
		if err != nil {
			return err
		}

		e, err := a.session.Get(ctx, entity, id, includes...)
		if err != nil {
			return err
		}
		return printEntity(e)
	},
}

func init() {
	showCmd.Flags().StringSliceP("include", "i", nil, "related resources to include (comma separated)")
}
