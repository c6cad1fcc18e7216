package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/graphcal/internal/logging"
)

// Flags shared by every command.
var (
	debugMode      bool
	envFile        string
	userID         string
	tokenStoreKind string
	tokenDir       string
)

// rootCmd represents the base command for the graphcal application
var rootCmd = &cobra.Command{
	Use:   "graphcal",
	Short: "Microsoft Graph calendar access for the command line and AI assistants",
	Long: `graphcal reads and writes Microsoft 365 calendars through Microsoft Graph
on behalf of a signed-in user.

It can run as:
  - A CLI: sign in once with "graphcal login", then query profiles and
    calendars or create events and subscriptions
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		slog.SetDefault(logging.NewTextLogger(os.Stderr, debugMode))
		return nil
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
	rootCmd.SetVersionTemplate(`{{printf "graphcal version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	flags.StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: .env in the working directory, if present)")
	flags.StringVarP(&userID, "user", "u", "", "User ID to act for, usually the sign-in address (env: GRAPHCAL_USER)")
	flags.StringVar(&tokenStoreKind, "token-store", "", "Where tokens are kept: file (default) or memory (env: GRAPHCAL_TOKEN_STORE)")
	flags.StringVar(&tokenDir, "token-dir", "", "Directory of the file token store (default: the user cache dir; env: GRAPHCAL_TOKEN_DIR)")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newCalendarCmd())
	rootCmd.AddCommand(newCreateEventCmd())
	rootCmd.AddCommand(newSubscribeCmd())
	rootCmd.AddCommand(newTeamsMeetingsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
