package commands

import (
	"github.com/spf13/cobra"
)

var (
	// configPath is the path to the TOML config file.
	configPath string

	// serverURL overrides the configured backend URL.
	serverURL string

	// logLevel overrides the configured log level.
	logLevel string

	// outputFormat controls output format (text, json, html).
	outputFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "lexdesk",
	Short: "Legal document summaries from the terminal",
	Long: `lexdesk manages your uploaded legal documents, generates their
summaries and answers questions about them.

Run "lexdesk open" for the interactive browser, or "lexdesk mcp" to expose the
summary tools to an MCP client over stdio.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"Path to config file (default: ~/.lexdesk/config.toml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&serverURL, "server", "",
		"Backend URL (overrides config and $LEXDESK_SERVER_URL)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error, critical, off",
	)

	// Add subcommands.
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
