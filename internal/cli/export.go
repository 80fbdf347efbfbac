package cli

import (
	"github.com/spf13/cobra"

	"alert-relay/internal/app"
)

var (
	exportBucket  string
	exportPNGPath string
	exportSymbol  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a telemetry bucket's indicator series as a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Bucket:  exportBucket,
			PNGPath: exportPNGPath,
			Symbol:  exportSymbol,
		}
		return getApp().Export(opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportBucket, "bucket", "", "Bucket filename to chart (defaults to the newest)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "Only chart rows for this symbol")
}
