// Package census reshapes Stats NZ territorial-authority religious
// affiliation exports into the per-code, per-year JSON structure the
// demographic consumers expect.
package census

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// religionMapping maps Stats NZ affiliation labels to the application
// vocabulary. Affiliations outside this set (totals, "object to answering",
// percentage rows) are dropped.
var religionMapping = map[string]string{
	"Christianity":    "Christian",
	"No religion":     "No religion",
	"Buddhism":        "Buddhism",
	"Hinduism":        "Hinduism",
	"Islam":           "Islam",
	"Judaism":         "Judaism",
	"Māori religions": "Māori Christian",
	"Other Religions": "Other religion",
}

// Religions is the application vocabulary, in display order. "Total stated"
// is derived as the sum over this set.
var Religions = []string{
	"Christian", "No religion", "Buddhism", "Hinduism",
	"Islam", "Judaism", "Māori Christian", "Other religion",
}

// censusYears are the years present in current Stats NZ exports.
var censusYears = []string{"2013", "2018", "2023"}

// Record is one row of a Stats NZ religious-affiliation export.
type Record struct {
	Authority string
	Year      string
	Religion  string
	Unit      string
	Value     string
}

// Counts maps religion name to a population count for one census year.
type Counts map[string]int

// Authority is one territorial authority's demographic timeline.
type Authority struct {
	Name  string
	Years map[string]Counts
}

// MarshalJSON flattens the year maps next to the name, matching the layout
// of the demographic JSON files the map frontend consumes.
func (a Authority) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Years)+1)
	out["name"] = a.Name
	for year, counts := range a.Years {
		out[year] = counts
	}
	return json.Marshal(out)
}

// Dataset maps a 3-digit territorial authority code to its timeline.
type Dataset map[string]Authority

// Reshape aggregates raw export rows into a coded Dataset. Only Count-unit
// rows with a mapped religion contribute; unparseable counts are logged and
// skipped without failing the reshape. Codes are assigned in sorted
// authority-name order, and the 2023 counts also back-fill the 2006 slot of
// the timeline, which predates the available exports.
func Reshape(records []Record) Dataset {
	log := zap.L().With(zap.String("component", "census.reshape"))

	// authority name → year → religion → count
	byName := make(map[string]map[string]Counts)
	var rows, countRows int

	for _, rec := range records {
		rows++
		if rec.Unit != "Count" {
			continue
		}
		countRows++

		religion, ok := religionMapping[rec.Religion]
		if !ok {
			continue
		}

		count, err := parseCount(rec.Value)
		if err != nil {
			log.Warn("unparseable count skipped",
				zap.String("authority", rec.Authority),
				zap.String("year", rec.Year),
				zap.String("religion", religion),
				zap.String("value", rec.Value),
			)
			continue
		}

		years, ok := byName[rec.Authority]
		if !ok {
			years = make(map[string]Counts)
			byName[rec.Authority] = years
		}
		if years[rec.Year] == nil {
			years[rec.Year] = make(Counts)
		}
		years[rec.Year][religion] = count
	}

	// Derive Total stated per authority/year.
	for _, years := range byName {
		for _, year := range censusYears {
			counts, ok := years[year]
			if !ok {
				continue
			}
			total := 0
			for _, religion := range Religions {
				total += counts[religion]
			}
			counts["Total stated"] = total
		}
	}

	// Assign 3-digit codes by sorted authority name.
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	dataset := make(Dataset, len(names))
	for i, name := range names {
		code := fmt.Sprintf("%03d", i+1)
		years := byName[name]
		dataset[code] = Authority{
			Name: name,
			Years: map[string]Counts{
				// No 2006 export exists; the newest census stands in.
				"2006": yearOrEmpty(years, "2023"),
				"2013": yearOrEmpty(years, "2013"),
				"2018": yearOrEmpty(years, "2018"),
			},
		}
	}

	log.Info("census rows reshaped",
		zap.Int("rows", rows),
		zap.Int("count_rows", countRows),
		zap.Int("authorities", len(dataset)),
	)
	return dataset
}

func yearOrEmpty(years map[string]Counts, year string) Counts {
	if c, ok := years[year]; ok {
		return c
	}
	return Counts{}
}

// parseCount accepts both integer and decimal renderings of a count.
func parseCount(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
