package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"jichul/internal/config"
	"jichul/internal/log"
)

// RootOptions holds global flags and the state PersistentPreRunE prepares
// for every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config *config.Config
	Logger *log.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "jichul",
		Short: "jichul - household expense tracker",
		Long: `jichul keeps a household's recurring expenses and the payees they go to.

Settings come from the environment (and .env when present). DATA_DIR holds
the CSV files and the JSON cache that every command reads and writes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			config.LoadDotEnv()
			opts.Config = config.Load()
			opts.Logger = SetupLogger(opts.Config, cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))

	return cmd
}

// Execute runs the root command with args and returns the process exit code.
func Execute(args ...string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		newPrinter(cmd.ErrOrStderr(), "text").Error(err.Error())
		return 1
	}
	return 0
}

func (o *RootOptions) printer(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout(), o.Format)
}
