package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/usecase"
)

var (
	parseDispensary string
	parseFile       string
	parseCategory   string
)

func init() {
	parseCmd.Flags().StringVarP(&parseDispensary, "dispensary", "d", "unknown", "Dispensary slug to attribute the listing to.")
	parseCmd.Flags().StringVarP(&parseFile, "file", "f", "", "Read the raw listing text from a file instead of the argument.")
	parseCmd.Flags().StringVar(&parseCategory, "category", "", "Page-section category hint.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse [raw text] [--file <listing.txt>]",
	Short: "Parses one listing and shows how the detector scores it.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := parseInput(args)
		if err != nil {
			return err
		}

		catalog, err := usecase.NewCatalog(usecase.DefaultCatalogConfig())
		if err != nil {
			return err
		}
		detector, err := usecase.NewDealDetector(catalog, usecase.DefaultDetectorConfig())
		if err != nil {
			return err
		}

		p := usecase.NewProductParser(catalog).ParseRecord(domain.RawScrapeRecord{
			RawText:         raw,
			ScrapedCategory: parseCategory,
		}, parseDispensary)

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"Name", p.Name},
			{"Brand", orDash(p.Brand)},
			{"Category", p.EffectiveCategory()},
			{"Subtype", subtype(p.ProductSubtype)},
			{"Infused", p.IsInfused},
			{"Weight", weight(p.WeightValue, p.WeightUnit)},
			{"Original", money(p.OriginalPrice)},
			{"Sale", money(p.SalePrice)},
			{"Discount", fmt.Sprintf("%d%%", p.DiscountPercent)},
			{"THC", percent(p.THCPercent)},
			{"CBD", percent(p.CBDPercent)},
		})
		t.AppendSeparator()

		ok, reason := detector.PassesHardFilters(&p)
		if !ok {
			t.AppendRow(table.Row{"Rejected", reason})
			t.Render()
			return nil
		}
		b := detector.ScoreBreakdown(&p)
		t.AppendRows([]table.Row{
			{"Discount points", fmt.Sprintf("%.2f", b.Discount)},
			{"Price points", fmt.Sprintf("%.2f", b.Price)},
			{"Savings points", fmt.Sprintf("%.2f", b.Savings)},
			{"Premium brand", fmt.Sprintf("%.2f", b.PremiumBrand)},
			{"THC points", fmt.Sprintf("%.2f", b.THC)},
			{"Score", b.Total},
		})
		if ok, reason := detector.PassesQualityGate(&p); !ok {
			t.AppendRow(table.Row{"Rejected", reason})
		} else {
			t.AppendRow(table.Row{"Badge", orDash(string(usecase.Badge(b.Total)))})
		}
		t.Render()
		return nil
	},
}

func parseInput(args []string) (string, error) {
	switch {
	case parseFile != "":
		data, err := os.ReadFile(parseFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(args) == 1 && strings.TrimSpace(args[0]) != "":
		// Shells pass "\n" literally.
		return strings.ReplaceAll(args[0], `\n`, "\n"), nil
	default:
		return "", errors.New("provide the listing text as an argument or with --file")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func subtype(s *domain.Subtype) string {
	if s == nil {
		return "-"
	}
	return string(*s)
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
