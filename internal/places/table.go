package places

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// BBox is a geographic bounding box in "minLat,minLng,maxLat,maxLng" order.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// World covers the whole globe.
var World = BBox{MinLat: -90, MinLng: -180, MaxLat: 90, MaxLng: 180}

// ParseBBox parses a comma-separated "minLat,minLng,maxLat,maxLng" string
// and validates the coordinate ranges.
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, eris.Errorf("places: bounds must have 4 values, got %d", len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, eris.Wrapf(err, "places: parse bounds value %q", p)
		}
		vals[i] = v
	}

	b := BBox{MinLat: vals[0], MinLng: vals[1], MaxLat: vals[2], MaxLng: vals[3]}
	if !(-90 <= b.MinLat && b.MinLat <= b.MaxLat && b.MaxLat <= 90) {
		return BBox{}, eris.New("places: invalid latitude bounds")
	}
	if !(-180 <= b.MinLng && b.MinLng <= b.MaxLng && b.MaxLng <= 180) {
		return BBox{}, eris.New("places: invalid longitude bounds")
	}
	return b, nil
}

// Contains reports whether the point is inside the box, bounds inclusive.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Table is an immutable in-memory places dataset. It is constructed
// explicitly and passed to callers; there is no ambient process-wide copy.
type Table struct {
	places []Place
}

// NewTable wraps a loaded dataset. The slice order is preserved and is the
// order queries return records in.
func NewTable(places []Place) *Table {
	return &Table{places: places}
}

// Len returns the number of records in the table.
func (t *Table) Len() int { return len(t.places) }

// QueryOptions filter a bounding-box query. A zero Bounds matches nothing;
// use World for an unbounded query.
type QueryOptions struct {
	Bounds        BBox
	MinConfidence float64
	Limit         int // 0 means no limit
}

// QueryResult carries the matched records plus the total number of records
// inside the bounds before the limit was applied.
type QueryResult struct {
	Places        []Place `json:"places"`
	TotalInBounds int     `json:"total_in_bounds"`
}

// Query returns the records inside the bounding box at or above the minimum
// confidence, in table order. When more than Limit records match, the
// highest-confidence Limit records are returned instead, ordered by
// confidence descending.
func (t *Table) Query(opts QueryOptions) QueryResult {
	var matched []Place
	for _, p := range t.places {
		if !opts.Bounds.Contains(p.Lat, p.Lng) {
			continue
		}
		if p.Confidence < opts.MinConfidence {
			continue
		}
		matched = append(matched, p)
	}

	result := QueryResult{TotalInBounds: len(matched)}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Confidence > matched[j].Confidence
		})
		matched = matched[:opts.Limit]
	}
	result.Places = matched
	return result
}

// Find looks a place up by its dataset ID, falling back to a bare OSM
// element ID. It returns nil when no record matches.
func (t *Table) Find(id string) *Place {
	for i := range t.places {
		if t.places[i].ID == id {
			return &t.places[i]
		}
	}
	for i := range t.places {
		if strconv.FormatInt(t.places[i].OSMID, 10) == id {
			return &t.places[i]
		}
	}
	return nil
}

// Stats summarizes a dataset: per-country and per-religion counts,
// confidence buckets, and data-completeness counts.
type Stats struct {
	Count            int            `json:"count"`
	ByCountry        map[string]int `json:"by_country"`
	ByReligion       map[string]int `json:"by_religion"`
	MeanConfidence   float64        `json:"mean_confidence"`
	HighConfidence   int            `json:"high_confidence_count"`   // >= 0.8
	MediumConfidence int            `json:"medium_confidence_count"` // >= 0.6, cumulative with high
	LowConfidence    int            `json:"low_confidence_count"`    // < 0.6
	WithNames        int            `json:"places_with_names"`
	WithAddresses    int            `json:"places_with_addresses"`
	WithWebsites     int            `json:"places_with_websites"`
	WithPhones       int            `json:"places_with_phones"`
}

// Stats aggregates the whole table.
func (t *Table) Stats() Stats {
	s := Stats{
		Count:      len(t.places),
		ByCountry:  make(map[string]int),
		ByReligion: make(map[string]int),
	}

	var confidenceSum float64
	for _, p := range t.places {
		s.ByCountry[p.CountryCode]++
		s.ByReligion[p.Religion]++
		confidenceSum += p.Confidence

		if p.Confidence >= 0.8 {
			s.HighConfidence++
		}
		if p.Confidence >= 0.6 {
			s.MediumConfidence++
		} else {
			s.LowConfidence++
		}

		if p.Name != "" {
			s.WithNames++
		}
		if p.Address != "" {
			s.WithAddresses++
		}
		if p.Website != "" {
			s.WithWebsites++
		}
		if p.Phone != "" {
			s.WithPhones++
		}
	}

	if s.Count > 0 {
		s.MeanConfidence = confidenceSum / float64(s.Count)
	}
	return s
}
