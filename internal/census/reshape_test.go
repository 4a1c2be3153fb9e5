package census

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportRows(authority, year string, counts map[string]string) []Record {
	var records []Record
	for religion, value := range counts {
		records = append(records, Record{
			Authority: authority,
			Year:      year,
			Religion:  religion,
			Unit:      "Count",
			Value:     value,
		})
	}
	return records
}

func TestReshape(t *testing.T) {
	var records []Record
	records = append(records, exportRows("Wellington City", "2018", map[string]string{
		"Christianity":    "60000",
		"No religion":     "120000",
		"Buddhism":        "4000",
		"Hinduism":        "5000",
		"Islam":           "3000",
		"Judaism":         "900",
		"Māori religions": "1500",
		"Other Religions": "2500",
	})...)
	records = append(records, exportRows("Wellington City", "2023", map[string]string{
		"Christianity": "55000",
		"No religion":  "130000",
	})...)
	records = append(records, exportRows("Auckland", "2018", map[string]string{
		"Christianity": "500000",
		"No religion":  "600000",
	})...)
	// Percentage rows and unmapped affiliations must be ignored.
	records = append(records,
		Record{Authority: "Auckland", Year: "2018", Religion: "Christianity", Unit: "Percent", Value: "38.2"},
		Record{Authority: "Auckland", Year: "2018", Religion: "Total people stated", Unit: "Count", Value: "999999"},
	)

	dataset := Reshape(records)
	require.Len(t, dataset, 2)

	// Codes are assigned in sorted name order.
	auckland, ok := dataset["001"]
	require.True(t, ok)
	assert.Equal(t, "Auckland", auckland.Name)

	wellington, ok := dataset["002"]
	require.True(t, ok)
	assert.Equal(t, "Wellington City", wellington.Name)

	y2018 := wellington.Years["2018"]
	assert.Equal(t, 60000, y2018["Christian"])
	assert.Equal(t, 1500, y2018["Māori Christian"])
	assert.Equal(t, 2500, y2018["Other religion"])
	assert.Equal(t, 196900, y2018["Total stated"])

	// 2023 backfills the 2006 slot.
	y2006 := wellington.Years["2006"]
	assert.Equal(t, 55000, y2006["Christian"])
	assert.Equal(t, 185000, y2006["Total stated"])

	// Auckland has no 2023 export, so its 2006 slot is empty.
	assert.Empty(t, auckland.Years["2006"])
	assert.Equal(t, 1100000, auckland.Years["2018"]["Total stated"])
}

func TestReshape_UnparseableCountSkipped(t *testing.T) {
	records := []Record{
		{Authority: "Gore District", Year: "2018", Religion: "Christianity", Unit: "Count", Value: "not-a-number"},
		{Authority: "Gore District", Year: "2018", Religion: "No religion", Unit: "Count", Value: "4000"},
	}

	dataset := Reshape(records)
	require.Len(t, dataset, 1)

	counts := dataset["001"].Years["2018"]
	assert.NotContains(t, counts, "Christian")
	assert.Equal(t, 4000, counts["No religion"])
	assert.Equal(t, 4000, counts["Total stated"])
}

func TestReshape_DecimalCounts(t *testing.T) {
	records := []Record{
		{Authority: "Nelson City", Year: "2013", Religion: "Islam", Unit: "Count", Value: "123.0"},
	}

	dataset := Reshape(records)
	assert.Equal(t, 123, dataset["001"].Years["2013"]["Islam"])
}

func TestAuthorityMarshalJSON(t *testing.T) {
	a := Authority{
		Name: "Dunedin City",
		Years: map[string]Counts{
			"2018": {"Christian": 100, "Total stated": 100},
		},
	}

	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "Dunedin City", decoded["name"])
	year := decoded["2018"].(map[string]any)
	assert.EqualValues(t, 100, year["Christian"])
}
