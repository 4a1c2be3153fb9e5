package census

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestReadCSV(t *testing.T) {
	csvData := "\ufeff" + strings.Join([]string{
		"Census Year,Territorial authority,Religious affiliation,Unit,Value",
		"2018,Auckland,Christianity,Count,500000",
		"2018,Auckland,Christianity,Percent,38.2",
	}, "\n")

	records, err := ReadCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		Authority: "Auckland",
		Year:      "2018",
		Religion:  "Christianity",
		Unit:      "Count",
		Value:     "500000",
	}, records[0])
	assert.Equal(t, "Percent", records[1].Unit)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	csvData := "Census Year,Territorial authority,Value\n2018,Auckland,1"

	_, err := ReadCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Religious affiliation")
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func writeTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Data")
	require.NoError(t, err)

	for _, row := range rows {
		r := sheet.AddRow()
		for _, value := range row {
			r.AddCell().SetString(value)
		}
	}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeTestXLSX(t, [][]string{
		{"Territorial authority", "Census Year", "Religious affiliation", "Unit", "Value"},
		{"Wellington City", "2023", "No religion", "Count", "130000"},
	})

	records, err := ReadXLSX(path, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Wellington City", records[0].Authority)
	assert.Equal(t, "130000", records[0].Value)

	// Named sheet selection.
	records, err = ReadXLSX(path, "Data")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = ReadXLSX(path, "Missing")
	assert.Error(t, err)
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "absent.xlsx"), "")
	assert.Error(t, err)
}
