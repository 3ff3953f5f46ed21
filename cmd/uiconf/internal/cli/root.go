// Package cli contains the uiconf command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/thalib/uiconf/cmd/uiconf/internal/output"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	color      string
}

// NewRootCommand builds the uiconf command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "uiconf",
		Short: "Web console configuration service",
		Long: `uiconf serves the constant table, model ratios and task records
behind the web console.

Example usage:
  uiconf serve --config /etc/uiconf.conf   # Start the HTTP service
  uiconf constants                         # Print the console constants
  uiconf sync --upstream main=https://a.example.com
  uiconf version`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := output.ParseColorMode(opts.color)
			return err
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is /etc/uiconf.conf)")
	root.PersistentFlags().StringVar(&opts.color, "color", "auto", "color output: auto, always, or never")

	root.AddCommand(
		newServeCommand(opts),
		newConstantsCommand(opts),
		newSyncCommand(opts),
		newVersionCommand(),
	)

	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// printer builds a Printer bound to the command's writers.
func (o *rootOptions) printer(cmd *cobra.Command) *output.Printer {
	mode, _ := output.ParseColorMode(o.color)
	return output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(mode))
}
