package dbf

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
)

const (
	fileHeaderSize      = 32
	fieldDescriptorSize = 32
	fieldTerminator     = 0x0D
	deletedMarker       = 0x2A
)

// Option configures a table read.
type Option func(*reader)

// WithDecoder sets the character decoder used for field names and text
// values, for tables written in a legacy code page (e.g.
// charmap.Windows1252.NewDecoder()). The default decodes values as UTF-8,
// dropping invalid bytes.
func WithDecoder(dec *encoding.Decoder) Option {
	return func(r *reader) { r.dec = dec }
}

type reader struct {
	src io.ReadSeeker
	dec *encoding.Decoder
}

// ReadTable parses a complete dBASE attribute table from src, which must be
// positioned at offset 0. Records marked deleted (first byte 0x2A) are
// excluded from the result entirely. Structural problems (a short header,
// declared sizes past end of file, a zero-length field) abort the parse;
// unparseable Numeric payloads decode to int64(0) without failing the record.
//
// Records are read one fixed-width buffer at a time, so only the result set
// is held in memory.
func ReadTable(src io.ReadSeeker, opts ...Option) (*Table, error) {
	r := &reader{src: src}
	for _, opt := range opts {
		opt(r)
	}

	header, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	records, err := r.readRecords(header)
	if err != nil {
		return nil, err
	}

	return &Table{Header: *header, Records: records}, nil
}

// ReadFile opens path and parses it with ReadTable. The file is closed on
// both success and failure paths.
func ReadFile(path string, opts ...Option) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dbf: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadTable(f, opts...)
}

func (r *reader) readHeader() (*TableHeader, error) {
	buf := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return nil, eris.Wrap(ErrMalformedHeader, "file shorter than the 32-byte header")
	}

	header := &TableHeader{
		RecordCount:  int(binary.LittleEndian.Uint32(buf[4:8])),
		HeaderLength: int(binary.LittleEndian.Uint16(buf[8:10])),
		RecordLength: int(binary.LittleEndian.Uint16(buf[10:12])),
	}
	if header.HeaderLength < fileHeaderSize || header.RecordLength < 1 {
		return nil, eris.Wrapf(ErrMalformedHeader,
			"inconsistent sizes: header_length=%d record_length=%d",
			header.HeaderLength, header.RecordLength)
	}

	if _, err := r.src.Seek(fileHeaderSize, io.SeekStart); err != nil {
		return nil, eris.Wrap(ErrMalformedHeader, "seek to field descriptors")
	}

	entry := make([]byte, fieldDescriptorSize)
	fieldBytes := 1 // leading deletion marker
	for pos := fileHeaderSize; pos < header.HeaderLength-1; pos += fieldDescriptorSize {
		if _, err := io.ReadFull(r.src, entry); err != nil {
			return nil, eris.Wrap(ErrTruncatedFile, "field descriptor table")
		}
		if entry[0] == fieldTerminator {
			break
		}

		field := FieldDescriptor{
			Name:   r.decodeText(bytes.Trim(entry[:11], "\x00 ")),
			Type:   FieldType(entry[11]),
			Length: int(entry[16]),
		}
		if field.Length == 0 {
			return nil, eris.Wrapf(ErrMalformedFieldDescriptor,
				"field %q has zero length", field.Name)
		}
		fieldBytes += field.Length
		header.Fields = append(header.Fields, field)
	}

	// The field layout must fit inside the declared record width; trailing
	// slack is tolerated.
	if fieldBytes > header.RecordLength {
		return nil, eris.Wrapf(ErrMalformedFieldDescriptor,
			"field layout needs %d bytes but record_length is %d",
			fieldBytes, header.RecordLength)
	}

	return header, nil
}

func (r *reader) readRecords(header *TableHeader) ([]Record, error) {
	if _, err := r.src.Seek(int64(header.HeaderLength), io.SeekStart); err != nil {
		return nil, eris.Wrap(ErrTruncatedFile, "seek to record block")
	}

	records := make([]Record, 0, header.RecordCount)
	buf := make([]byte, header.RecordLength)
	for i := 0; i < header.RecordCount; i++ {
		if _, err := io.ReadFull(r.src, buf); err != nil {
			return nil, eris.Wrapf(ErrTruncatedFile, "record %d of %d", i, header.RecordCount)
		}
		if buf[0] == deletedMarker {
			continue
		}
		records = append(records, r.decodeRecord(header.Fields, buf))
	}

	return records, nil
}

func (r *reader) decodeRecord(fields []FieldDescriptor, buf []byte) Record {
	record := make(Record, len(fields))
	offset := 1 // skip the deletion marker
	for _, field := range fields {
		raw := buf[offset : offset+field.Length]
		offset += field.Length

		switch field.Type {
		case FieldNumeric, FieldFloat:
			record[field.Name] = decodeNumeric(raw)
		default:
			// Character and any unrecognized type code decode as trimmed
			// text, for forward compatibility with DBF variants.
			record[field.Name] = r.decodeText(trimPadding(raw))
		}
	}
	return record
}

// decodeNumeric parses the textual payload of a Numeric field: float64 when
// a decimal point is present, int64 otherwise. Anything unparseable,
// including an all-padding payload, decodes to int64(0).
func decodeNumeric(raw []byte) any {
	s := string(trimPadding(raw))
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return int64(0)
		}
		return f
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return int64(0)
	}
	return n
}

func (r *reader) decodeText(b []byte) string {
	if r.dec != nil {
		if s, err := r.dec.String(string(b)); err == nil {
			return s
		}
	}
	return strings.ToValidUTF8(string(b), "")
}

// trimPadding strips the space and NUL padding dBASE writers use around
// fixed-width values.
func trimPadding(b []byte) []byte {
	return bytes.Trim(b, "\x00 \t\r\n")
}
