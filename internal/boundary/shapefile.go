// Package boundary converts territorial authority shapefiles into
// web-ready GeoJSON. Geometry comes from the .shp file and attributes
// from the sibling .dbf, joined by record index.
package boundary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/places-of-worship/places-cli/internal/dbf"
)

// Source attribute names as stored in the Stats NZ shapefile. DBF field
// names are capped at ten characters, hence the trailing underscores.
const (
	srcCode = "TA2025_V1_"
	srcName = "TA2025_V_1"
	srcArea = "LAND_AREA_"
)

// Standardized property names expected by the map frontend.
const (
	PropCode = "TA2025_V1"
	PropName = "TA2025_NAME"
	PropArea = "LAND_AREA"
)

// outsideCode marks the "Area Outside Territorial Authority" record.
const outsideCode = "999"

// Options configure a shapefile conversion.
type Options struct {
	// SimplifyTolerance thins ring coordinates; zero disables thinning.
	SimplifyTolerance float64
	// Decoder translates legacy-encoded .dbf text, nil means UTF-8.
	Decoder *encoding.Decoder
}

// Convert reads <path>.shp and <path>.dbf and produces a cleaned, optionally
// simplified FeatureCollection. Records with code "999" or a name containing
// "outside" are excluded, and the remaining attributes are renamed to the
// standardized property set.
func Convert(shpPath string, opts Options) (*geojson.FeatureCollection, error) {
	log := zap.L().With(zap.String("component", "boundary"))

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	var dbfOpts []dbf.Option
	if opts.Decoder != nil {
		dbfOpts = append(dbfOpts, dbf.WithDecoder(opts.Decoder))
	}
	table, err := dbf.ReadFile(attributePath(shpPath), dbfOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: read attribute table")
	}

	fc := &geojson.FeatureCollection{}
	var idx, skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		recIdx := idx
		idx++

		if recIdx >= len(table.Records) {
			return nil, eris.Errorf("boundary: shape %d has no attribute record (%d attributes)",
				recIdx, len(table.Records))
		}
		attrs := table.Records[recIdx]

		code := attrString(attrs, srcCode)
		name := attrString(attrs, srcName)
		if code == "" || code == outsideCode || strings.Contains(strings.ToLower(name), "outside") {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		g := multiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}
		g = Simplify(g, opts.SimplifyTolerance)

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: g,
			Properties: map[string]any{
				PropCode: code,
				PropName: name,
				PropArea: attrs[srcArea],
			},
		})
	}

	log.Info("shapefile converted",
		zap.String("path", shpPath),
		zap.Int("features", len(fc.Features)),
		zap.Int("skipped", skipped),
	)
	return fc, nil
}

// WriteGeoJSON saves a FeatureCollection compactly, matching the frontend's
// expectation of a small boundary payload.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	raw, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrapf(err, "boundary: marshal %s", path)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "boundary: write %s", path)
	}
	return nil
}

func attributePath(shpPath string) string {
	return strings.TrimSuffix(shpPath, ".shp") + ".dbf"
}

func attrString(rec dbf.Record, field string) string {
	v, ok := rec[field]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// multiPolygon converts a shapefile polygon, parts and all, to a go-geom
// MultiPolygon in WGS84.
func multiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
