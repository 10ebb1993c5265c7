package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslot/internal/logging"
)

var (
	configFile string
	logFormat  string
	debugMode  bool
)

// rootCmd represents the base command for the meetslot application
var rootCmd = &cobra.Command{
	Use:   "meetslot",
	Short: "Finds common free meeting slots across participants' calendars",
	Long: `meetslot finds the best times for a meeting among a set of participants.

It reads each participant's busy times from Google Calendar or Microsoft Graph,
keeps to working hours and the lunch break, and ranks the free slots by
time-of-day preference.

It can run as:
  - A CLI tool (meetslot find)
  - An MCP (Model Context Protocol) server for AI assistants (meetslot serve)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetslot version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default logger on stderr. stdout stays free for
// command output and the stdio MCP transport.
func setupLogging() error {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	logger, err := logging.New(os.Stderr, logFormat, level)
	if err != nil {
		return fmt.Errorf("invalid --log-format: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (YAML, JSON or TOML). Settings can also use MEETSLOT_* env vars.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newFindCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
