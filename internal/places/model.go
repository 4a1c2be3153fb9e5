// Package places holds the normalized place-of-worship record and an
// in-memory table over a loaded dataset with bounding-box queries and
// aggregate statistics.
package places

// Place is one normalized place-of-worship record. IDs are the OSM element
// type initial followed by the element ID ("n123", "w456", "r789").
type Place struct {
	ID           string  `json:"id"`
	OSMID        int64   `json:"osm_id"`
	OSMType      string  `json:"osm_type"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Name         string  `json:"name"`
	Religion     string  `json:"religion"`
	Denomination string  `json:"denomination,omitempty"`
	Confidence   float64 `json:"confidence"`
	CountryCode  string  `json:"country_code"`
	Website      string  `json:"website,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Address      string  `json:"address,omitempty"`
	StartDate    string  `json:"start_date,omitempty"`
}
