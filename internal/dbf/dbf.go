// Package dbf reads dBASE III/IV attribute tables (the .dbf sidecar of a
// shapefile) into ordered field-name to value records, independent of any
// geometry. Joining records with the .shp geometry stream by record index is
// the caller's responsibility.
package dbf

import "github.com/rotisserie/eris"

// Structural parse failures. Any of these aborts the whole parse: record
// offsets depend on header correctness, so no partial result is returned.
var (
	// ErrMalformedHeader indicates the 32-byte file header is unreadable or
	// internally inconsistent.
	ErrMalformedHeader = eris.New("dbf: malformed header")

	// ErrTruncatedFile indicates the header declares sizes that extend past
	// the physical end of the file.
	ErrTruncatedFile = eris.New("dbf: truncated file")

	// ErrMalformedFieldDescriptor indicates a field descriptor with a zero
	// length, or a field layout that does not fit the declared record length.
	ErrMalformedFieldDescriptor = eris.New("dbf: malformed field descriptor")
)

// FieldType is the single-letter dBASE field type code.
type FieldType byte

// Known type codes. Files may carry codes outside this set; those fields
// decode as best-effort text rather than failing the parse.
const (
	FieldCharacter FieldType = 'C'
	FieldNumeric   FieldType = 'N'
	FieldFloat     FieldType = 'F'
	FieldDate      FieldType = 'D'
	FieldLogical   FieldType = 'L'
)

// FieldDescriptor describes one column of the attribute table.
type FieldDescriptor struct {
	Name   string
	Type   FieldType
	Length int
}

// TableHeader holds the file-level metadata of an attribute table.
// RecordLength includes the 1-byte deletion marker that prefixes every
// record.
type TableHeader struct {
	RecordCount  int
	HeaderLength int
	RecordLength int
	Fields       []FieldDescriptor
}

// Record maps field names to decoded values: string for Character (and any
// unrecognized type code), int64 or float64 for Numeric depending on the
// presence of a decimal point.
type Record map[string]any

// Table is a fully parsed attribute table. Records excludes soft-deleted
// rows and preserves on-disk order.
type Table struct {
	Header  TableHeader
	Records []Record
}
