package main

import (
	"fmt"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/client"
	"github.com/jcolombo/paymo/internal/ui"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named accounts (API URL and key)",
	GroupID: "system",
	// Remote subcommands only touch the remotes file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup(noColor)
		return nil
	},
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> [url]",
	Short: "Add or update a named remote",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		url := client.DefaultBaseURL
		if len(args) == 2 {
			url = args[1]
		}
		key, _ := cmd.Flags().GetString("key")
		natsURL, _ := cmd.Flags().GetString("nats")
		desc, _ := cmd.Flags().GetString("description")

		if key == "" && ui.IsInteractive() {
			prompt := &survey.Password{Message: fmt.Sprintf("API key for %s:", name)}
			if err := survey.AskOne(prompt, &key, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}

		rc, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		rc.Remotes[name] = Remote{URL: url, Key: key, NATSURL: natsURL, Description: desc}
		if len(rc.Remotes) == 1 {
			rc.Active = name
		}
		if err := saveRemotesConfig(rc); err != nil {
			return err
		}
		fmt.Printf("remote %q added (%s)\n", name, url)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		rc, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if _, ok := rc.Remotes[name]; !ok {
			return fmt.Errorf("remote %q not found", name)
		}
		delete(rc.Remotes, name)
		if rc.Active == name {
			rc.Active = ""
		}
		if err := saveRemotesConfig(rc); err != nil {
			return err
		}
		fmt.Printf("remote %q removed\n", name)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if len(rc.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured")
			return nil
		}

		names := make([]string, 0, len(rc.Remotes))
		for name := range rc.Remotes {
			names = append(names, name)
		}
		sort.Strings(names)

		tbl := ui.NewTable(cmd.OutOrStdout(), "  NAME", "URL", "KEY", "DESCRIPTION")
		for _, name := range names {
			r := rc.Remotes[name]
			marker := "  "
			if name == rc.Active {
				marker = "* "
			}
			tbl.AddRow(marker+name, r.URL, maskKey(r.Key), r.Description)
		}
		tbl.Render()
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active remote (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			rc.Active = ""
			if err := saveRemotesConfig(rc); err != nil {
				return err
			}
			fmt.Println("active remote cleared")
			return nil
		}
		name := args[0]
		if _, ok := rc.Remotes[name]; !ok {
			return fmt.Errorf("remote %q not found", name)
		}
		rc.Active = name
		if err := saveRemotesConfig(rc); err != nil {
			return err
		}
		fmt.Printf("active remote set to %q\n", name)
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		name := rc.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote; specify a name or run 'paymo remote use <name>'")
		}
		r, ok := rc.Remotes[name]
		if !ok {
			return fmt.Errorf("remote %q not found", name)
		}
		if jsonOutput {
			r.Key = maskKey(r.Key)
			return printJSON(r)
		}
		pairs := [][2]string{{"name", name}, {"url", r.URL}, {"key", maskKey(r.Key)}}
		if r.NATSURL != "" {
			pairs = append(pairs, [2]string{"nats", r.NATSURL})
		}
		if r.Description != "" {
			pairs = append(pairs, [2]string{"description", r.Description})
		}
		if name == rc.Active {
			pairs = append(pairs, [2]string{"active", "yes"})
		}
		ui.KeyValues(cmd.OutOrStdout(), pairs)
		return nil
	},
}

func init() {
	remoteAddCmd.Flags().String("key", "", "API key (prompted for when omitted on a terminal)")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for lifecycle events")
	remoteAddCmd.Flags().String("description", "", "free-form description")

	remoteCmd.AddCommand(remoteAddCmd)
	remoteCmd.AddCommand(remoteRemoveCmd)
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteUseCmd)
	remoteCmd.AddCommand(remoteShowCmd)
}
