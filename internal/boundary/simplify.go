package boundary

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Simplify thins a MultiPolygon by dropping ring points closer than
// tolerance to the previously kept point. First and last points of each
// ring are always kept, and rings reduced below four points are dropped.
// If thinning would erase the whole geometry, the original is returned.
func Simplify(mp *geom.MultiPolygon, tolerance float64) *geom.MultiPolygon {
	if mp == nil || tolerance <= 0 {
		return mp
	}

	var polys [][][]geom.Coord
	for _, poly := range mp.Coords() {
		var rings [][]geom.Coord
		for _, ring := range poly {
			thinned := thinRing(ring, tolerance)
			if len(thinned) >= 4 {
				rings = append(rings, thinned)
			}
		}
		if len(rings) > 0 {
			polys = append(polys, rings)
		}
	}
	if len(polys) == 0 {
		return mp
	}

	out, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		return mp
	}
	return out.SetSRID(mp.SRID())
}

func thinRing(ring []geom.Coord, tolerance float64) []geom.Coord {
	if len(ring) < 3 {
		return ring
	}

	thinned := []geom.Coord{ring[0]}
	for _, c := range ring[1 : len(ring)-1] {
		prev := thinned[len(thinned)-1]
		if math.Hypot(c[0]-prev[0], c[1]-prev[1]) > tolerance {
			thinned = append(thinned, c)
		}
	}
	return append(thinned, ring[len(ring)-1])
}
