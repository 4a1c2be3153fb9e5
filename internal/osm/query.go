package osm

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultCountries is the built-in extraction priority list, ordered by
// expected places-of-worship coverage in OSM.
var DefaultCountries = []string{
	"US", "DE", "GB", "FR", "IT", "ES", "NL", "BE", "AT", "CH",
	"AU", "NZ", "CA", "IE",
	"BR", "MX", "CO", "AR",
	"PL", "CZ", "NO", "SE", "DK", "FI",
	"IN", "PH", "TH", "VN", "KR", "JP", "MY",
	"ZA", "KE", "NG", "GH", "UG",
	"RO", "HU", "HR", "GR", "PT",
}

// Manifest is the YAML countries file: a list of ISO 3166-1 alpha-2 codes.
type Manifest struct {
	Countries []string `yaml:"countries"`
}

// LoadCountries reads a countries manifest. An empty path returns the
// built-in default list.
func LoadCountries(path string) ([]string, error) {
	if path == "" {
		return DefaultCountries, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: read countries manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, eris.Wrapf(err, "osm: parse countries manifest %s", path)
	}
	if len(m.Countries) == 0 {
		return nil, eris.Errorf("osm: countries manifest %s lists no countries", path)
	}

	for i, c := range m.Countries {
		m.Countries[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	return m.Countries, nil
}

// BuildQuery renders the Overpass QL query selecting places of worship,
// religious buildings, religious land use, and religion-tagged elements
// inside one country.
func BuildQuery(countryCode string, timeoutSecs int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", timeoutSecs)
	fmt.Fprintf(&b, "area[\"ISO3166-1\"=%q]->.country;\n", countryCode)
	b.WriteString("(\n")
	b.WriteString("  nwr[\"amenity\"=\"place_of_worship\"](area.country);\n")
	for _, building := range []string{
		"church", "mosque", "temple", "synagogue",
		"chapel", "cathedral", "monastery", "shrine",
	} {
		fmt.Fprintf(&b, "  nwr[\"building\"=%q](area.country);\n", building)
	}
	b.WriteString("  nwr[\"landuse\"=\"religious\"](area.country);\n")
	b.WriteString("  nwr[\"religion\"~\"christian|muslim|hindu|buddhist|jewish|sikh|taoist|shinto|bahai\"](area.country);\n")
	b.WriteString(");\n")
	b.WriteString("out geom;\n")

	return b.String()
}
