package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var locatorsFlags struct {
	index string
	pages int
	limit int
}

func init() {
	f := locatorsCmd.Flags()
	f.StringVar(&locatorsFlags.index, "index", "", "Index page to scan.")
	f.IntVar(&locatorsFlags.pages, "max-index-pages", 0, "Follow at most this many index pages.")
	f.IntVar(&locatorsFlags.limit, "limit", 0, "List at most this many locators.")
	_ = locatorsCmd.MarkFlagRequired("index")
	rootCmd.AddCommand(locatorsCmd)
}

var locatorsCmd = &cobra.Command{
	Use:   "locators --index <url>",
	Short: "Lists the target pages an index page links to without visiting them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		hv, _, cleanup, err := newHarvester(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		locators, err := hv.CollectLocators(cmd.Context(), locatorsFlags.index, cfg.Harvest.Locators, locatorsFlags.pages, locatorsFlags.limit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "Title", "URL"})
		for i, loc := range locators {
			t.AppendRow(table.Row{i + 1, loc.Title, loc.URL})
		}
		t.Render()
		return nil
	},
}
