// Package osm extracts places of worship from OpenStreetMap via the
// Overpass API and normalizes raw elements into places.Place records.
package osm

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/places-of-worship/places-cli/internal/places"
)

// LatLon is a bare coordinate pair as Overpass emits it.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Element is one raw Overpass element (node, way, or relation).
type Element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Center   *LatLon           `json:"center,omitempty"`
	Geometry []LatLon          `json:"geometry,omitempty"`
	Tags     map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []Element `json:"elements"`
}

var religiousBuildings = map[string]bool{
	"church": true, "mosque": true, "temple": true, "synagogue": true,
	"chapel": true, "cathedral": true, "monastery": true, "shrine": true,
}

// Religion variants mapped to a standard vocabulary.
var religionVariants = map[string][]string{
	"christian": {"christian", "christianity", "catholic", "protestant", "orthodox"},
	"muslim":    {"muslim", "islam", "islamic"},
	"jewish":    {"jewish", "judaism", "jew"},
	"hindu":     {"hindu", "hinduism"},
	"buddhist":  {"buddhist", "buddhism", "buddha"},
	"sikh":      {"sikh", "sikhism"},
	"bahai":     {"bahai", "baha'i", "bahaism"},
	"taoist":    {"taoist", "taoism", "dao"},
	"shinto":    {"shinto", "shintoism"},
	"jain":      {"jain", "jainism"},
}

// FromElement converts a raw Overpass element into a normalized Place.
// It returns nil when the element is not a place of worship, carries no
// usable coordinates, or has no element type to derive an ID from.
func FromElement(el Element, countryCode string) *places.Place {
	if el.Type == "" {
		return nil
	}
	if !IsPlaceOfWorship(el.Tags) {
		return nil
	}

	lat, lng, ok := coordinates(el)
	if !ok {
		return nil
	}

	return &places.Place{
		ID:           fmt.Sprintf("%s%d", el.Type[:1], el.ID),
		OSMID:        el.ID,
		OSMType:      el.Type,
		Lat:          lat,
		Lng:          lng,
		Name:         placeName(el.Tags, el.ID),
		Religion:     NormalizeReligion(el.Tags["religion"]),
		Denomination: el.Tags["denomination"],
		Confidence:   Confidence(el.Tags),
		CountryCode:  countryCode,
		Website:      el.Tags["website"],
		Phone:        el.Tags["phone"],
		Address:      address(el.Tags),
		StartDate:    startDate(el.Tags),
	}
}

// IsPlaceOfWorship classifies an element by its tags: the amenity tag, a
// religious building type, religious land use, or a bare religion tag on
// anything that is not a school/hospital/social facility.
func IsPlaceOfWorship(tags map[string]string) bool {
	if tags["amenity"] == "place_of_worship" {
		return true
	}
	if religiousBuildings[tags["building"]] {
		return true
	}
	if tags["landuse"] == "religious" {
		return true
	}
	if tags["religion"] != "" {
		switch tags["amenity"] {
		case "school", "hospital", "social_facility":
			return false
		}
		return true
	}
	return false
}

// coordinates returns the element position: the node position, the Overpass
// center, or the centroid of a way's geometry.
func coordinates(el Element) (lat, lng float64, ok bool) {
	switch {
	case el.Type == "node":
		return el.Lat, el.Lon, true
	case el.Center != nil:
		return el.Center.Lat, el.Center.Lon, true
	case el.Type == "way" && len(el.Geometry) > 0:
		var latSum, lonSum float64
		for _, c := range el.Geometry {
			latSum += c.Lat
			lonSum += c.Lon
		}
		n := float64(len(el.Geometry))
		return latSum / n, lonSum / n, true
	}
	return 0, 0, false
}

// placeName picks the best available name tag, falling back to a synthetic
// description from denomination or religion.
func placeName(tags map[string]string, osmID int64) string {
	for _, key := range []string{"name", "name:en", "official_name", "short_name", "alt_name"} {
		if name := strings.TrimSpace(tags[key]); name != "" {
			return name
		}
	}

	// cases.Caser is stateful and not safe for concurrent use, so build one
	// per call; extraction runs FromElement from multiple goroutines.
	if d := tags["denomination"]; d != "" {
		return cases.Title(language.English).String(d) + " Place of Worship"
	}
	if r := tags["religion"]; r != "" && r != "unknown" {
		return cases.Title(language.English).String(r) + " Place of Worship"
	}
	return fmt.Sprintf("Place of Worship %d", osmID)
}

// NormalizeReligion maps OSM religion tag variants to a standard set,
// passing unrecognized values through lowercased.
func NormalizeReligion(religion string) string {
	if religion == "" {
		return "unknown"
	}
	lower := strings.ToLower(religion)
	for standard, variants := range religionVariants {
		for _, v := range variants {
			if lower == v {
				return standard
			}
		}
	}
	return lower
}

// Confidence scores how complete the element's tagging is: a 0.5 base plus
// additive bonuses for strong indicators and detail tags, capped at 1.0.
func Confidence(tags map[string]string) float64 {
	score := 0.5

	if tags["amenity"] == "place_of_worship" {
		score += 0.2
	}
	if tags["name"] != "" {
		score += 0.15
	}
	if tags["religion"] != "" && tags["religion"] != "unknown" {
		score += 0.1
	}
	if tags["denomination"] != "" {
		score += 0.05
	}
	if tags["website"] != "" || tags["phone"] != "" {
		score += 0.05
	}
	if tags["addr:street"] != "" || tags["addr:city"] != "" || tags["addr:postcode"] != "" {
		score += 0.05
	}
	if tags["service_times"] != "" {
		score += 0.03
	}
	if tags["wheelchair"] != "" {
		score += 0.02
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

// address assembles a readable address from addr:* tags.
func address(tags map[string]string) string {
	var parts []string

	switch {
	case tags["addr:housenumber"] != "" && tags["addr:street"] != "":
		parts = append(parts, tags["addr:housenumber"]+" "+tags["addr:street"])
	case tags["addr:street"] != "":
		parts = append(parts, tags["addr:street"])
	}
	if tags["addr:city"] != "" {
		parts = append(parts, tags["addr:city"])
	}
	if tags["addr:postcode"] != "" {
		parts = append(parts, tags["addr:postcode"])
	}

	return strings.Join(parts, ", ")
}

// startDate returns the establishment date when any of the date tags carry
// one.
func startDate(tags map[string]string) string {
	for _, key := range []string{"start_date", "construction_date", "opening_date"} {
		if tags[key] != "" {
			return tags[key]
		}
	}
	return ""
}
