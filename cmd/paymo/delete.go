package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <entity> <id>...",
	Short:   "Delete one or more resources",
	GroupID: "resources",
	Args:    cobra.MinimumNArgs(2),
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
		for _, raw := range args[1:] {
			id, err := parseID(raw)
			if err != nil {
				return err
			}
			e, err := a.session.Ref(entity, id)
			if err != nil {
				return err
			}
			if err := e.Delete(ctx); err != nil {
				return fmt.Errorf("deleting %s#%d: %w", entity, id, err)
			}
			fmt.Printf("%s %s#%d\n", ui.RenderSuccess("Deleted"), entity, id)
		}
		return nil
	},
}
