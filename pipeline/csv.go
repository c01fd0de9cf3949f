package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrSourceNotFound = errors.New("source file not found")
	ErrSourceEmpty    = errors.New("source file is empty or has no columns")
)

// Table is a CSV file held fully in memory.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV loads path, decoding it from the named charset first.
func ReadCSV(path, charset string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	dec, err := decoderFor(charset)
	if err != nil {
		return nil, err
	}
	table, err := ParseCSV(transform.NewReader(file, dec.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseCSV reads a header line and every record after it. Rows must have as
// many fields as the header.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrSourceEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 || len(header) == 1 && strings.TrimSpace(header[0]) == "" {
		return nil, ErrSourceEmpty
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return &Table{Columns: header, Rows: rows}, nil
}

func decoderFor(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		// strips a leading byte-order mark if the exporter wrote one
		return unicode.UTF8BOM, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", charset)
	}
}
