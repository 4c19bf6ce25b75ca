package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogFile  string
	LogLevel slog.Level
	Config   Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the wodrun CLI. Flag defaults
// come from LoadConfig, so WODRUN_* variables apply unless a flag is given.
func NewRootCommand() *cobra.Command {
	cfg := LoadConfig()
	opts := &RootOptions{Config: cfg, LogLevel: cfg.LogLevel}

	cmd := &cobra.Command{
		Use:   "wodrun",
		Short: "wodrun - workout script runtime",
		Long:  "Compile workout statement scripts into runtime blocks and execute them turn by turn.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", cfg.LogFile, "also write JSON logs to this file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
