// Package fetcher downloads and parses tabular data from HTTP, CSV and XLSX sources.
package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSV parses a whole CSV document into its header and data rows. The
// bytes are decoded with DecodeText first, so Latin-1 exports load as well
// as UTF-8 ones. Blank trailing lines are ignored.
func ReadCSV(data []byte, opts CSVOptions) ([]string, [][]string, error) {
	reader := newCSVReader(bytes.NewReader(DecodeText(data)), opts)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "csv: read all")
	}
	if len(records) == 0 {
		return nil, nil, eris.New("csv: no header row")
	}
	if opts.TrimSpace {
		for _, rec := range records {
			trimFields(rec)
		}
	}
	return records[0], records[1:], nil
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields
	return reader
}

func trimFields(record []string) {
	for i, field := range record {
		record[i] = strings.TrimSpace(field)
	}
}
