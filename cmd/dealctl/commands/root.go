package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/budwatch/backend/internal/pkg/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "dealctl",
	Short:         "dealctl parses dispensary menus and curates the daily deal set.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline stages to stderr.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*logger.Logger, error) {
	if !verbose {
		return logger.NewNop(), nil
	}
	return logger.New("development")
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func weight(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g%s", *v, unit)
}
