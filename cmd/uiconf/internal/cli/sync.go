package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thalib/uiconf/cmd/uiconf/internal/config"
	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
	"github.com/thalib/uiconf/cmd/uiconf/internal/handlers"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
	"github.com/thalib/uiconf/cmd/uiconf/internal/output"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratio"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratiosync"
)

// ErrAllUpstreamsFailed is returned when no upstream could be fetched.
var ErrAllUpstreamsFailed = errors.New("all upstreams failed")

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var (
		rawUpstreams []string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Compare local model ratios with upstream instances",
		Long: `Fetch the ratio_config payload from each upstream and list every value
that differs from the local database. Without --config the local side is
empty and every upstream value is listed.

Upstreams are given as name=baseURL or name=baseURL=endpoint.`,
		Example: `  uiconf sync --upstream main=https://a.example.com
  uiconf sync --config /etc/uiconf.conf --upstream a=https://a.example.com --upstream b=https://b.example.com=/api/ratios`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			upstreams := make([]ratiosync.Upstream, 0, len(rawUpstreams))
			seen := map[string]bool{}
			for _, raw := range rawUpstreams {
				u, err := ratiosync.ParseUpstream(raw)
				if err != nil {
					return err
				}
				if seen[u.Name] {
					return fmt.Errorf("%w: duplicate name %q", ratiosync.ErrInvalidUpstream, u.Name)
				}
				seen[u.Name] = true
				upstreams = append(upstreams, u)
			}

			clientOpts := ratiosync.Options{
				Logger: logging.NewLogger(logging.LoggerConfig{
					Level:  logging.LevelError,
					Format: "console",
					Output: cmd.ErrOrStderr(),
				}),
			}
			local := ratio.NewConfig()
			if opts.configPath != "" {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				clientOpts.Timeout = cfg.Ratio.SyncTimeoutDuration()
				clientOpts.Concurrency = cfg.Ratio.SyncConcurrency
				if local, err = loadLocalRatios(cmd.Context(), cfg); err != nil {
					return err
				}
			}

			results := ratiosync.NewClient(clientOpts).FetchAll(cmd.Context(), upstreams)
			resp := handlers.FetchResponse{
				Differences: ratiosync.Differences(local, results),
				TestResults: make([]ratiosync.TestResult, len(results)),
			}
			failed := 0
			for i, r := range results {
				resp.TestResults[i] = r.TestResult()
				if r.Err != nil {
					failed++
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else if err := printSyncReport(opts.printer(cmd), cmd, results, resp); err != nil {
				return err
			}

			if failed == len(results) {
				return ErrAllUpstreamsFailed
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&rawUpstreams, "upstream", "u", nil, "upstream as name=baseURL[=endpoint] (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("upstream")
	return cmd
}

// loadLocalRatios reads the exposed ratios from the configured database.
// A database that was never served has no ratio table and compares as
// empty; sync does not create it.
func loadLocalRatios(ctx context.Context, cfg *config.AppConfig) (ratio.Config, error) {
	driver, err := database.NewDriver(database.Config{
		ConnectionString: cfg.Database.ConnectionString(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	if err := driver.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer driver.Close()

	repo := ratio.NewRepository(driver)
	exists, err := repo.HasSchema(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return ratio.NewConfig(), nil
	}
	return repo.Exposed(ctx)
}

func printSyncReport(p *output.Printer, cmd *cobra.Command, results []ratiosync.Result, resp handlers.FetchResponse) error {
	p.Header("Upstreams")
	var names []string
	for _, r := range results {
		tr := r.TestResult()
		if r.Err != nil {
			p.Print("%s %s %s", p.StatusBadge(tr.Status), tr.Name, p.Dim(tr.Error))
			continue
		}
		p.Print("%s %s %s", p.StatusBadge(tr.Status), tr.Name, p.Dim(r.Upstream.URL()))
		names = append(names, tr.Name)
	}

	p.Header("Differences")
	if len(resp.Differences) == 0 {
		p.Success("No differences")
		return nil
	}

	models := make([]string, 0, len(resp.Differences))
	for model := range resp.Differences {
		models = append(models, model)
	}
	sort.Strings(models)

	table := output.NewTable(cmd.OutOrStdout(), append([]string{"Model", "Type", "Local"}, names...))
	for _, model := range models {
		for _, t := range ratio.Types() {
			diff, ok := resp.Differences[model][t]
			if !ok {
				continue
			}
			row := []string{model, t, formatRatio(diff.Current)}
			for _, name := range names {
				if v, ok := diff.Upstreams[name]; ok {
					row = append(row, formatRatio(&v))
				} else {
					row = append(row, "-")
				}
			}
			table.AddRow(row...)
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	p.Info("%d models differ", len(models))
	return nil
}

func formatRatio(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
