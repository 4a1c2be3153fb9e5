package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/places-of-worship/places-cli/internal/census"
	"github.com/places-of-worship/places-cli/internal/store"
)

var censusCmd = &cobra.Command{
	Use:   "census <export.csv|export.xlsx>",
	Short: "Reshape a Stats NZ religious affiliation export",
	Long: `Reads a Stats NZ territorial authority religious-affiliation export
(CSV or XLSX, chosen by extension) and reshapes it into the per-code,
per-year demographic JSON the map frontend consumes.

With --db the reshaped counts are also persisted as census attribute rows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		sheet, _ := cmd.Flags().GetString("sheet")
		persist, _ := cmd.Flags().GetBool("db")

		records, err := readExport(args[0], sheet)
		if err != nil {
			return err
		}

		dataset := census.Reshape(records)

		raw, err := json.MarshalIndent(dataset, "", "  ")
		if err != nil {
			return eris.Wrap(err, "census: marshal dataset")
		}
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return eris.Wrapf(err, "census: write %s", out)
		}

		if persist {
			st, err := store.NewSQLite(cfg.Store.Path)
			if err != nil {
				return eris.Wrap(err, "census")
			}
			defer st.Close() //nolint:errcheck

			if err := st.Migrate(cmd.Context()); err != nil {
				return eris.Wrap(err, "census")
			}
			if err := st.InsertCensus(cmd.Context(), dataset); err != nil {
				return eris.Wrap(err, "census")
			}
			zap.L().Info("census attributes persisted",
				zap.String("db", cfg.Store.Path),
				zap.Int("authorities", len(dataset)),
			)
		}

		fmt.Printf("Reshaped %d territorial authorities to %s\n", len(dataset), out)
		return nil
	},
}

func init() {
	censusCmd.Flags().String("out", "ta_demographics.json", "output JSON path")
	censusCmd.Flags().String("sheet", "", "XLSX sheet name (default: first sheet)")
	censusCmd.Flags().Bool("db", false, "also persist attribute rows to the places database")
	rootCmd.AddCommand(censusCmd)
}

func readExport(path, sheet string) ([]census.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return census.ReadXLSX(path, sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "census: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return census.ReadCSV(f)
	default:
		return nil, eris.Errorf("census: unsupported export format %q", filepath.Ext(path))
	}
}
