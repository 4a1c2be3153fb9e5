package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/places-of-worship/places-cli/internal/osm"
	"github.com/places-of-worship/places-cli/internal/places"
	"github.com/places-of-worship/places-cli/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract places of worship from OpenStreetMap",
	Long: `Queries the Overpass API for places of worship, one country at a time,
and writes raw and normalized JSON per country. Completed countries are
cached on disk, so an interrupted run can be resumed by re-running.

With --db the normalized places are also persisted to the places database.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		countriesStr, _ := cmd.Flags().GetString("countries")
		countriesFile, _ := cmd.Flags().GetString("countries-file")
		outputDir, _ := cmd.Flags().GetString("out")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		persist, _ := cmd.Flags().GetBool("db")

		if countriesFile == "" {
			countriesFile = cfg.Extract.CountriesFile
		}
		codes, err := osm.LoadCountries(countriesFile)
		if err != nil {
			return eris.Wrap(err, "extract")
		}
		if countriesStr != "" {
			codes = splitAndTrim(strings.ToUpper(countriesStr))
		}

		if outputDir == "" {
			outputDir = cfg.Extract.OutputDir
		}
		if concurrency == 0 {
			concurrency = cfg.Extract.Concurrency
		}

		log := zap.L().With(zap.String("command", "extract"))
		log.Info("starting extraction",
			zap.Strings("countries", codes),
			zap.String("output_dir", outputDir),
			zap.Int("concurrency", concurrency),
		)

		extractor, err := osm.NewExtractor(osm.Options{
			Servers:     cfg.Extract.Servers,
			OutputDir:   outputDir,
			Concurrency: concurrency,
			Pace:        time.Duration(cfg.Extract.PaceSecs) * time.Second,
			Timeout:     time.Duration(cfg.Extract.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		results, err := extractor.Countries(ctx, codes)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		var all []places.Place
		var failed int
		for _, code := range codes {
			extracted := results[code]
			if len(extracted) == 0 {
				failed++
			}
			all = append(all, extracted...)
		}

		if persist {
			st, err := store.NewSQLite(cfg.Store.Path)
			if err != nil {
				return eris.Wrap(err, "extract")
			}
			defer st.Close() //nolint:errcheck

			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "extract")
			}
			if err := st.InsertPlaces(ctx, all); err != nil {
				return eris.Wrap(err, "extract")
			}
			log.Info("places persisted", zap.String("db", cfg.Store.Path), zap.Int("places", len(all)))
		}

		fmt.Printf("Extracted %d places from %d countries (%d empty)\n",
			len(all), len(codes), failed)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("countries", "", "comma-separated ISO country codes (default: built-in priority list)")
	extractCmd.Flags().String("countries-file", "", "YAML manifest of country codes (default: from config)")
	extractCmd.Flags().String("out", "", "output directory (default: from config)")
	extractCmd.Flags().Int("concurrency", 0, "concurrent country extractions (default: from config)")
	extractCmd.Flags().Bool("db", false, "also persist extracted places to the places database")
	rootCmd.AddCommand(extractCmd)
}

// splitAndTrim splits a comma-separated flag value, dropping empty entries.
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
