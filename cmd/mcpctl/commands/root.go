// Package commands implements mcpctl's subcommands.
package commands

import (
	"github.com/flightos/mcpd/cmd/mcpctl/cmdutil"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "mcpctl",
	Short: "Inspect and control a running mcpd",
	Long: `mcpctl reads the mission control table a running mcpd is configured
against to report state, rules, parameters, and partitions, and signals
a running daemon via its PID file to reload configuration.

mcpctl reads the same config file passed to mcpd via --config; point it
at the same path to inspect a specific instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmdutil.GlobalFlags.ConfigPath, "config", "", "Path to mcpd's config file")
	rootCmd.PersistentFlags().StringVar(&cmdutil.GlobalFlags.PIDFile, "pid-file", "", "Path to mcpd's PID file (required for reload)")
	rootCmd.PersistentFlags().StringVarP(&cmdutil.GlobalFlags.Output, "output", "o", "table", "Output format (table|json|yaml)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(partitionsCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print mcpctl's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("mcpctl %s (commit: %s)\n", Version, Commit)
		return nil
	},
}
