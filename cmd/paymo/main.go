package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/config"
	"github.com/jcolombo/paymo/internal/ui"
)

var (
	configFile string
	remoteName string
	jsonOutput bool
	noColor    bool
	logLevel   string
	devMode    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "paymo",
	Short:         "Command line client for the Paymo API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup(noColor)

		var err error
		cfg, err = config.LoadFile(configFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("dev") {
			cfg.DevMode = devMode
		}
		return applyRemote(cfg, remoteName)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./paymo.toml or ~/.config/paymo/paymo.toml)")
	rootCmd.PersistentFlags().StringVar(&remoteName, "remote", "", "named remote to use instead of the active one")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "validate descriptors and reject dropped includes")

	rootCmd.AddGroup(
		&cobra.Group{ID: "resources", Title: "Resource commands:"},
		&cobra.Group{ID: "system", Title: "System commands:"},
	)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(exitCode(err))
	}
}
