package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/trialwatch/internal/pipeline"
	"github.com/sells-group/trialwatch/internal/report"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Render the actionable-trials digest",
	Long:  "Queries trials inside the readout and recently-completed windows and writes a markdown briefing, with optional CSV and XLSX tables alongside.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		outPath, _ := cmd.Flags().GetString("out")
		days, _ := cmd.Flags().GetInt("days")
		csvPath, _ := cmd.Flags().GetString("csv")
		xlsxPath, _ := cmd.Flags().GetString("xlsx")

		window := actionableWindow(cfg.Pipeline)
		if days > 0 {
			window.ReadoutDays = days
		}

		rows, err := pipeline.Digest(ctx, st, window, 0)
		if err != nil {
			return err
		}

		if err := writeFile(outPath, func(f *os.File) error {
			return report.WriteMarkdown(f, rows, time.Now())
		}); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote %s (%d trials)\n", outPath, len(rows))

		// Table exports default to the digest path with the suffix swapped.
		if csvPath == "" && cfg.Pipeline.ExportCSV {
			csvPath = swapExt(outPath, ".csv")
		}
		if xlsxPath == "" && cfg.Pipeline.ExportExcel {
			xlsxPath = swapExt(outPath, ".xlsx")
		}

		if csvPath != "" {
			if err := writeFile(csvPath, func(f *os.File) error {
				return report.WriteCSV(f, rows)
			}); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s\n", csvPath)
		}
		if xlsxPath != "" {
			if err := writeFile(xlsxPath, func(f *os.File) error {
				return report.WriteXLSX(f, rows)
			}); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s\n", xlsxPath)
		}
		return nil
	},
}

func writeFile(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck
	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func init() {
	digestCmd.Flags().String("out", "digest.md", "output markdown file path")
	digestCmd.Flags().Int("days", 0, "override the readout window in days")
	digestCmd.Flags().String("csv", "", "CSV output path (default: --out with .csv when pipeline.export_csv)")
	digestCmd.Flags().String("xlsx", "", "XLSX output path (default: --out with .xlsx when pipeline.export_excel)")
	rootCmd.AddCommand(digestCmd)
}
