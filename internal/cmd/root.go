package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for gemrun
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gemrun",
		Short: "File-based task queue runner for the Gemini CLI",
		Long: `Gemrun watches a folder of prompt files and feeds them, one at a time,
to the gemini CLI.

Each task file in the todo folder is read and sent to gemini on stdin,
and the response is written to the output folder. Processed tasks are
moved to the done folder, so a run can be interrupted and resumed at
any point without repeating work.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())

	return cmd
}
