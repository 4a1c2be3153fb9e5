package census

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Column headers of a Stats NZ religious-affiliation export.
const (
	colAuthority = "Territorial authority"
	colYear      = "Census Year"
	colReligion  = "Religious affiliation"
	colUnit      = "Unit"
	colValue     = "Value"
)

// ReadCSV parses a Stats NZ CSV export. The exports carry a UTF-8 BOM,
// which is stripped from the first header cell.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "census: read csv")
	}
	return recordsFromRows(rows)
}

// ReadXLSX parses a Stats NZ XLSX export. An empty sheet name selects the
// first sheet.
func ReadXLSX(path, sheetName string) ([]Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open xlsx %s", path)
	}

	sheet, err := pickSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return recordsFromRows(rows)
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name == "" {
		if len(f.Sheets) == 0 {
			return nil, eris.New("census: xlsx file has no sheets")
		}
		return f.Sheets[0], nil
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("census: sheet %q not found", name)
	}
	return sheet, nil
}

// recordsFromRows maps a header row plus data rows to Records. Column order
// in the export is not fixed, so columns are located by header name.
func recordsFromRows(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, eris.New("census: export is empty")
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colAuthority, colYear, colReligion, colUnit, colValue} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("census: export is missing column %q", required)
		}
	}

	cell := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		records = append(records, Record{
			Authority: cell(row, colAuthority),
			Year:      cell(row, colYear),
			Religion:  cell(row, colReligion),
			Unit:      cell(row, colUnit),
			Value:     cell(row, colValue),
		})
	}
	return records, nil
}
