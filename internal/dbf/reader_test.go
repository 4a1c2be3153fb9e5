package dbf

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

type testRow struct {
	deleted bool
	values  [][]byte
}

// encodeTable builds a synthetic dBASE file: 32-byte header, one 32-byte
// descriptor per field, the 0x0D terminator, then fixed-width records.
func encodeTable(t *testing.T, fields []FieldDescriptor, rows []testRow) []byte {
	t.Helper()

	headerLen := fileHeaderSize + len(fields)*fieldDescriptorSize + 1
	recordLen := 1
	for _, f := range fields {
		recordLen += f.Length
	}

	var buf bytes.Buffer
	header := make([]byte, fileHeaderSize)
	header[0] = 0x03 // dBASE III, no memo
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(rows)))
	binary.LittleEndian.PutUint16(header[8:10], uint16(headerLen))
	binary.LittleEndian.PutUint16(header[10:12], uint16(recordLen))
	buf.Write(header)

	for _, f := range fields {
		entry := make([]byte, fieldDescriptorSize)
		copy(entry[:11], f.Name)
		entry[11] = byte(f.Type)
		entry[16] = byte(f.Length)
		buf.Write(entry)
	}
	buf.WriteByte(fieldTerminator)

	for _, row := range rows {
		require.Len(t, row.values, len(fields))
		if row.deleted {
			buf.WriteByte(deletedMarker)
		} else {
			buf.WriteByte(' ')
		}
		for i, f := range fields {
			cell := make([]byte, f.Length)
			for j := range cell {
				cell[j] = ' '
			}
			copy(cell, row.values[i])
			buf.Write(cell)
		}
	}

	return buf.Bytes()
}

func TestReadTable_EndToEnd(t *testing.T) {
	fields := []FieldDescriptor{{Name: "NAME", Type: FieldCharacter, Length: 10}}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{[]byte("ABCDEFGHIJ")}},
		{deleted: true, values: [][]byte{[]byte("ZZZZZZZZZZ")}},
	})

	table, err := ReadTable(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Header.RecordCount)
	assert.Equal(t, 11, table.Header.RecordLength)
	require.Len(t, table.Records, 1)
	assert.Equal(t, Record{"NAME": "ABCDEFGHIJ"}, table.Records[0])
}

func TestReadTable_FieldTypes(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "CITY", Type: FieldCharacter, Length: 12},
		{Name: "POP", Type: FieldNumeric, Length: 8},
		{Name: "AREA", Type: FieldNumeric, Length: 10},
		{Name: "FOUNDED", Type: FieldDate, Length: 8},
		{Name: "ACTIVE", Type: FieldLogical, Length: 1},
	}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{
			[]byte("Wellington"),
			[]byte("  215000"),
			[]byte("   289.91"),
			[]byte("18400101"),
			[]byte("T"),
		}},
	})

	table, err := ReadTable(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	rec := table.Records[0]
	assert.Equal(t, "Wellington", rec["CITY"])
	assert.Equal(t, int64(215000), rec["POP"])
	assert.Equal(t, 289.91, rec["AREA"])
	// Unrecognized-for-decoding type codes pass through as text.
	assert.Equal(t, "18400101", rec["FOUNDED"])
	assert.Equal(t, "T", rec["ACTIVE"])
}

func TestReadTable_FieldDescriptors(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "TA2025_V1", Type: FieldCharacter, Length: 5},
		{Name: "LAND_AREA", Type: FieldNumeric, Length: 12},
	}
	raw := encodeTable(t, fields, nil)

	table, err := ReadTable(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, fields, table.Header.Fields)
	assert.Empty(t, table.Records)
}

func TestReadTable_DeletedRecordsExcludedInOrder(t *testing.T) {
	fields := []FieldDescriptor{{Name: "ID", Type: FieldCharacter, Length: 3}}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{[]byte("001")}},
		{deleted: true, values: [][]byte{[]byte("002")}},
		{values: [][]byte{[]byte("003")}},
		{deleted: true, values: [][]byte{[]byte("004")}},
		{values: [][]byte{[]byte("005")}},
	})

	table, err := ReadTable(bytes.NewReader(raw))
	require.NoError(t, err)

	var ids []string
	for _, rec := range table.Records {
		ids = append(ids, rec["ID"].(string))
	}
	assert.Equal(t, []string{"001", "003", "005"}, ids)
}

func TestReadTable_MalformedNumericDefaultsToZero(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "GOOD", Type: FieldCharacter, Length: 4},
		{Name: "BAD", Type: FieldNumeric, Length: 6},
		{Name: "ALSOGOOD", Type: FieldNumeric, Length: 4},
	}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{[]byte("keep"), []byte("x12y"), []byte("  42")}},
	})

	table, err := ReadTable(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	rec := table.Records[0]
	assert.Equal(t, "keep", rec["GOOD"])
	assert.Equal(t, int64(0), rec["BAD"])
	assert.Equal(t, int64(42), rec["ALSOGOOD"])
}

func TestReadTable_EmptyNumericDefaultsToZero(t *testing.T) {
	fields := []FieldDescriptor{{Name: "N", Type: FieldNumeric, Length: 6}}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{[]byte("      ")}},
	})

	table, err := ReadTable(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(0), table.Records[0]["N"])
}

func TestReadTable_TruncatedHeader(t *testing.T) {
	_, err := ReadTable(bytes.NewReader([]byte{0x03, 0x00, 0x00, 0x00, 0x01}))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestReadTable_InconsistentHeaderSizes(t *testing.T) {
	header := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint32(header[4:8], 1)
	binary.LittleEndian.PutUint16(header[8:10], 16) // shorter than the header itself
	binary.LittleEndian.PutUint16(header[10:12], 8)

	_, err := ReadTable(bytes.NewReader(header))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestReadTable_TruncatedRecordBlock(t *testing.T) {
	fields := []FieldDescriptor{{Name: "ID", Type: FieldCharacter, Length: 3}}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{[]byte("001")}},
		{values: [][]byte{[]byte("002")}},
	})
	// Claim ten records but keep only the two encoded.
	binary.LittleEndian.PutUint32(raw[4:8], 10)

	_, err := ReadTable(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrTruncatedFile)
}

func TestReadTable_ZeroLengthField(t *testing.T) {
	fields := []FieldDescriptor{{Name: "ID", Type: FieldCharacter, Length: 3}}
	raw := encodeTable(t, fields, nil)
	raw[fileHeaderSize+16] = 0 // zero out the descriptor's length byte

	_, err := ReadTable(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrMalformedFieldDescriptor)
}

func TestReadTable_FieldLayoutOverrunsRecord(t *testing.T) {
	fields := []FieldDescriptor{{Name: "ID", Type: FieldCharacter, Length: 3}}
	raw := encodeTable(t, fields, nil)
	binary.LittleEndian.PutUint16(raw[10:12], 2) // record_length < 1 + field bytes

	_, err := ReadTable(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrMalformedFieldDescriptor)
}

func TestReadTable_WithDecoder(t *testing.T) {
	fields := []FieldDescriptor{{Name: "NAME", Type: FieldCharacter, Length: 8}}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{{'c', 'a', 'f', 0xE9}}}, // "café" in Windows-1252
	})

	table, err := ReadTable(bytes.NewReader(raw), WithDecoder(charmap.Windows1252.NewDecoder()))
	require.NoError(t, err)
	assert.Equal(t, "café", table.Records[0]["NAME"])

	// Without a decoder the invalid UTF-8 byte is dropped, never an error.
	table, err = ReadTable(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "caf", table.Records[0]["NAME"])
}

func TestReadFile(t *testing.T) {
	fields := []FieldDescriptor{{Name: "NAME", Type: FieldCharacter, Length: 10}}
	raw := encodeTable(t, fields, []testRow{
		{values: [][]byte{[]byte("Auckland")}},
	})

	path := filepath.Join(t.TempDir(), "ta.dbf")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	table, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "Auckland", table.Records[0]["NAME"])

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.dbf"))
	assert.Error(t, err)
}
