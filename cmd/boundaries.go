package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/places-of-worship/places-cli/internal/boundary"
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries <file.shp>",
	Short: "Convert a territorial authority shapefile to GeoJSON",
	Long: `Joins shapefile geometry with its .dbf attribute table and writes a
cleaned FeatureCollection. The "Area Outside Territorial Authority" record
is excluded and property names are standardized for the map frontend.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		tolerance, _ := cmd.Flags().GetFloat64("tolerance")
		encodingName, _ := cmd.Flags().GetString("encoding")

		if tolerance < 0 {
			tolerance = cfg.Boundary.SimplifyTolerance
		}
		if encodingName == "" {
			encodingName = cfg.Boundary.Encoding
		}
		dec, err := charsetDecoder(encodingName)
		if err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "boundaries"))
		log.Info("converting shapefile",
			zap.String("path", args[0]),
			zap.Float64("tolerance", tolerance),
		)

		fc, err := boundary.Convert(args[0], boundary.Options{
			SimplifyTolerance: tolerance,
			Decoder:           dec,
		})
		if err != nil {
			return eris.Wrap(err, "boundaries")
		}

		if err := boundary.WriteGeoJSON(out, fc); err != nil {
			return eris.Wrap(err, "boundaries")
		}

		fmt.Printf("Wrote %d features to %s\n", len(fc.Features), out)
		return nil
	},
}

func init() {
	boundariesCmd.Flags().String("out", "boundaries.geojson", "output GeoJSON path")
	boundariesCmd.Flags().Float64("tolerance", -1, "simplification tolerance in degrees (default: from config)")
	boundariesCmd.Flags().String("encoding", "", "attribute table character encoding (default: from config)")
	rootCmd.AddCommand(boundariesCmd)
}
