package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:     "update <entity> <id> field=value...",
	Short:   "Update fields of a resource",
	GroupID: "resources",
	Args:    cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		values, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}

		e, err := a.session.Ref(entity, id)
		if err != nil {
			return err
		}
		if err := e.SetAll(values); err != nil {
			return err
		}
		changed := e.DirtyKeys()
		if err := e.Update(ctx); err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(e.Flatten())
		}
		fmt.Printf("%s %s %s\n", ui.RenderSuccess("Updated"), e, ui.RenderMuted(fmt.Sprint(changed)))
		return nil
	},
}
