package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thalib/uiconf/cmd/uiconf/internal/config"
	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	"github.com/thalib/uiconf/cmd/uiconf/internal/handlers"
	"github.com/thalib/uiconf/cmd/uiconf/internal/output"
)

func newConstantsCommand(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "constants",
		Short: "Print the constant table served to the web console",
		Long: `Print the constant table served on /api/frontend/constants.

The ratio endpoint is read from --config when given, otherwise the
default is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ratioEndpoint := constants.DefaultEndpoint
			if opts.configPath != "" {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				ratioEndpoint = cfg.Server.Prefix + cfg.Ratio.Endpoint
			}

			table := handlers.NewFrontendConstants(ratioEndpoint)
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(table)
			}

			t := output.NewTable(cmd.OutOrStdout(), []string{"Name", "Value"})
			t.AddRow("items_per_page", fmt.Sprint(table.ItemsPerPage))
			t.AddRow("default_endpoint", table.DefaultEndpoint)
			t.AddRow("ratio_endpoint", table.RatioEndpoint)
			t.AddRow("table_compact_modes_key", table.TableCompactModesKey)
			t.AddRow("api_endpoints", strings.Join(table.APIEndpoints, "\n"))
			t.AddRow("task_action_generate", table.TaskActionGenerate)
			t.AddRow("task_action_text_generate", table.TaskActionTextGenerate)
			return t.Render()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
