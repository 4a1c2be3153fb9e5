package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/places-of-worship/places-cli/internal/places"
	"github.com/places-of-worship/places-cli/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored places by bounding box",
	Long: `Loads the places database and prints matching places as JSON. When more
places match than --limit allows, the highest-confidence places win.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bboxStr, _ := cmd.Flags().GetString("bbox")
		minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
		limit, _ := cmd.Flags().GetInt("limit")

		bounds := places.World
		if bboxStr != "" {
			var err error
			bounds, err = places.ParseBBox(bboxStr)
			if err != nil {
				return eris.Wrap(err, "query")
			}
		}

		table, err := loadTable(cmd)
		if err != nil {
			return err
		}

		result := table.Query(places.QueryOptions{
			Bounds:        bounds,
			MinConfidence: minConfidence,
			Limit:         limit,
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "query: encode result")
	},
}

func init() {
	queryCmd.Flags().String("bbox", "", "bounding box as minLat,minLng,maxLat,maxLng (default: whole world)")
	queryCmd.Flags().Float64("min-confidence", 0, "minimum confidence score")
	queryCmd.Flags().Int("limit", 1000, "maximum places returned")
	rootCmd.AddCommand(queryCmd)
}

// loadTable builds an in-memory places table from the configured database.
func loadTable(cmd *cobra.Command) (*places.Table, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open places database")
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(cmd.Context()); err != nil {
		return nil, eris.Wrap(err, "migrate places database")
	}

	all, err := st.LoadPlaces(cmd.Context())
	if err != nil {
		return nil, eris.Wrap(err, "load places")
	}
	return places.NewTable(all), nil
}
