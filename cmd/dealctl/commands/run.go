package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/budwatch/backend/config"
	"github.com/budwatch/backend/internal/app"
	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/usecase"
)

var (
	runSource  batchSource
	runDSN     string
	runNoStore bool
	runLimit   int
)

func init() {
	runCmd.Flags().StringVarP(&runSource.JSONPath, "input", "i", "", "JSON file mapping dispensary slugs to scrape records.")
	runCmd.Flags().StringSliceVar(&runSource.HTMLPaths, "html", nil, "Captured menu pages to extract product cards from.")
	runCmd.Flags().StringVarP(&runSource.Dispensary, "dispensary", "d", "", "Dispensary slug for --html pages.")
	runCmd.Flags().StringVar(&runSource.BaseURL, "base-url", "", "Resolves relative product links in --html pages.")
	runCmd.Flags().StringVar(&runSource.Category, "category", "", "Page-section category hint for --html pages.")
	runCmd.Flags().StringVar(&runSource.Selector, "selector", "", "CSS selector for product cards in --html pages.")
	runCmd.Flags().StringVar(&runDSN, "db", "", "Override storage.dsn.")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "Do not persist the selected deals.")
	runCmd.Flags().IntVarP(&runLimit, "limit", "n", 25, "Deals to print, 0 for all.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run (--input <batches.json> | --html <menu.html> --dispensary <slug>)",
	Short: "Runs the deal pipeline over scraped menus and prints the curated set.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		batches, err := loadBatches(runSource)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if runDSN != "" {
			cfg.Storage.DSN = runDSN
		}
		if runNoStore {
			cfg.Storage.DSN = ""
		}

		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		pipeline, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		result, err := pipeline.Deals.Run(cmd.Context(), batches)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		renderDeals(out, result.Selection.Deals, runLimit)
		renderSummary(out, result)
		return nil
	},
}

func renderDeals(w io.Writer, deals []domain.Deal, limit int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Score", "Badge", "Name", "Brand", "Category", "Weight", "Sale", "Off", "Dispensary"})
	for i, d := range deals {
		if limit > 0 && i >= limit {
			t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d more", len(deals)-limit)})
			break
		}
		t.AppendRow(table.Row{
			i + 1, d.DealScore, orDash(string(d.Badge)), d.Name, orDash(d.Brand),
			d.EffectiveCategory(), weight(d.WeightValue, d.WeightUnit), money(d.SalePrice),
			fmt.Sprintf("%d%%", d.DiscountPercent), d.DispensaryID,
		})
	}
	t.Render()
}

func renderSummary(w io.Writer, result *usecase.RunResult) {
	sel, sum := result.Selection, result.Summary

	t := newTable(w)
	t.SetTitle("Run %s", result.RunID)
	t.AppendHeader(table.Row{"Stage", "Count"})
	t.AppendRows([]table.Row{
		{"Parsed", sum.TotalProducts},
		{"Hard filter rejected", sel.Stats.HardFilterRejected},
		{"Quality rejected", sel.Stats.QualityRejected},
		{"Near duplicates removed", sel.SimilarRemoved},
		{"Selected", sum.SelectedDeals},
		{"Backfilled", sel.Backfilled},
		{"Distinct brands", sum.DistinctBrands},
		{"Distinct dispensaries", sum.DistinctDispensaries},
		{"Average score", sum.AverageScore},
		{"Average discount", fmt.Sprintf("%.1f%%", sum.AverageDiscount)},
	})
	t.AppendSeparator()
	for _, c := range domain.Categories {
		if n := sum.SelectedByCategory[c]; n > 0 {
			t.AppendRow(table.Row{string(c), n})
		}
	}
	t.Render()

	if len(sel.Stats.Reasons) == 0 {
		return
	}
	reasons := make([]string, 0, len(sel.Stats.Reasons))
	for r := range sel.Stats.Reasons {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	rt := newTable(w)
	rt.AppendHeader(table.Row{"Reject reason", "Count"})
	for _, r := range reasons {
		rt.AppendRow(table.Row{r, sel.Stats.Reasons[usecase.RejectReason(r)]})
	}
	rt.Render()
}
