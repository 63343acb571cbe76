package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/budwatch/backend/config"
	"github.com/budwatch/backend/internal/app"
	"github.com/budwatch/backend/internal/domain"
)

var (
	dealsDSN      string
	dealsCategory string
	dealsLimit    int
)

func init() {
	dealsCmd.Flags().StringVar(&dealsDSN, "db", "", "Override storage.dsn.")
	dealsCmd.Flags().StringVarP(&dealsCategory, "category", "c", "", "Only show one category.")
	dealsCmd.Flags().IntVarP(&dealsLimit, "limit", "n", 0, "Deals to print, 0 for all.")
	rootCmd.AddCommand(dealsCmd)
}

var dealsCmd = &cobra.Command{
	Use:   "deals [--category <flower>]",
	Short: "Lists the active deal set from the deal store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if dealsDSN != "" {
			cfg.Storage.DSN = dealsDSN
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

		deals, err := pipeline.Deals.ActiveDeals(cmd.Context())
		if err != nil {
			return err
		}

		if dealsCategory != "" {
			category := domain.Category(strings.ToLower(dealsCategory))
			filtered := deals[:0]
			for _, d := range deals {
				if d.EffectiveCategory() == category {
					filtered = append(filtered, d)
				}
			}
			deals = filtered
		}

		renderDeals(cmd.OutOrStdout(), deals, dealsLimit)
		return nil
	},
}
