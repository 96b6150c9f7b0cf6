package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/resource"
	"github.com/jcolombo/paymo/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create <entity> field=value...",
	Short:   "Create a resource",
	GroupID: "resources",
	Example: `  paymo create project name="Website relaunch" client_id=12
  paymo create task name=Design tasklist_id=40 users='[1,2]'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")

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
		values, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}

		e, err := a.session.New(entity)
		if err != nil {
			return err
		}
		if err := e.SetAll(values); err != nil {
			return err
		}
		if err := e.Create(ctx, resource.CreateOptions{CancelReadonly: strict}); err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(e.Flatten())
		}
		fmt.Printf("%s %s\n", ui.RenderSuccess("Created"), e)
		return nil
	},
}

func init() {
	createCmd.Flags().Bool("strict", false, "fail instead of dropping read-only fields")
}
