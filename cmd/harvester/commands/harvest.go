package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/output"
)

var harvestFlags struct {
	index  string
	out    string
	format string
	limit  int
	pages  int
	delay  time.Duration
	policy string
}

func init() {
	f := harvestCmd.Flags()
	f.StringVar(&harvestFlags.index, "index", "", "Index page listing the target pages.")
	f.StringVar(&harvestFlags.out, "out", "", "Output file (default: output.path from config, else stdout).")
	f.StringVar(&harvestFlags.format, "format", "", "Output format: csv, json, table or markdown.")
	f.IntVar(&harvestFlags.limit, "limit", 0, "Harvest at most this many pages.")
	f.IntVar(&harvestFlags.pages, "max-index-pages", 0, "Follow at most this many index pages.")
	f.DurationVar(&harvestFlags.delay, "delay", 0, "Pause between page fetches.")
	f.StringVar(&harvestFlags.policy, "policy", "", "Failed page handling: skip, abort or retry.")
	_ = harvestCmd.MarkFlagRequired("index")
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest --index <url> [--out <file>] [--format csv|json|table|markdown]",
	Short: "Harvests every page linked from an index page and writes one table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if harvestFlags.policy != "" {
			cfg.Harvest.FailurePolicy = harvestFlags.policy
		}
		format := cfg.Output.Format
		if harvestFlags.format != "" {
			format = harvestFlags.format
		}
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		path := cfg.Output.Path
		if harvestFlags.out != "" {
			path = harvestFlags.out
		}

		hv, _, cleanup, err := newHarvester(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		res, runErr := hv.Harvest(cmd.Context(), harvest.Request{
			IndexURL:      harvestFlags.index,
			MaxIndexPages: harvestFlags.pages,
			Limit:         harvestFlags.limit,
			Delay:         harvestFlags.delay,
		})
		if res == nil {
			return runErr
		}

		r := res.Report
		slog.Info("harvest finished",
			"requested", r.Requested,
			"harvested", r.Harvested,
			"failed", len(r.Failed),
			"skipped_rows", r.SkippedRows,
			"missing_tables", r.MissingTables,
			"aborted", r.Aborted,
			"duration", r.Duration,
		)

		w, err := openOutput(path, cmd.OutOrStdout())
		if err != nil {
			return errors.Join(runErr, err)
		}
		werr := output.Write(w, f, harvest.Tabulate(res.Batch), output.Options{CRLF: cfg.Output.CRLF})
		if cerr := w.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			werr = fmt.Errorf("write %s output: %w", f, werr)
		}
		return errors.Join(runErr, werr)
	},
}
