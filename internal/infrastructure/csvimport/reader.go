// Package csvimport reads recipient lists for batch issuance.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// RecipientColumns are the header names a recipient list must carry
var RecipientColumns = []string{"id", "name", "grade"}

// encodingCheckSize is how much of the file is inspected for UTF-8
const encodingCheckSize = 4096

// RecipientRow is one data row of a recipient list
type RecipientRow struct {
	Line  int
	ID    string
	Name  string
	Grade string
}

// Reader reads recipient rows from CSV. Header names are matched case
// insensitively and extra columns are ignored.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
}

type readerConfig struct {
	delimiter rune
}

// ReaderOption is a functional option for Reader configuration
type ReaderOption func(*readerConfig)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ReaderOption {
	return func(c *readerConfig) {
		c.delimiter = d
	}
}

// NewReader strips a UTF-8 BOM, checks the encoding and parses the header
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	cfg := readerConfig{delimiter: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	buf := bufio.NewReaderSize(r, encodingCheckSize)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	if bom, err := buf.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buf.Discard(3)
	}
	if err := validateUTF8(buf); err != nil {
		return nil, err
	}

	cr := csv.NewReader(buf)
	cr.Comma = cfg.delimiter
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	var missing []string
	for _, c := range RecipientColumns {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	return &Reader{csv: cr, columns: columns}, nil
}

// validateUTF8 checks the start of the content is valid UTF-8
func validateUTF8(r *bufio.Reader) error {
	content, err := r.Peek(encodingCheckSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}

	// A rune may straddle the end of the peeked window
	if n := len(content); n == encodingCheckSize {
		for i := 1; i <= utf8.UTFMax && i <= n; i++ {
			if utf8.RuneStart(content[n-i]) {
				if !utf8.FullRune(content[n-i:]) {
					content = content[:n-i]
				}
				break
			}
		}
	}

	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// Next returns the next non-blank row, or io.EOF when the file is exhausted.
// Values are trimmed; missing trailing fields read as empty.
func (r *Reader) Next() (*RecipientRow, error) {
	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			var line int
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			return nil, &RowError{Line: line, Err: err}
		}
		line, _ := r.csv.FieldPos(0)

		row := &RecipientRow{
			Line:  line,
			ID:    field(record, r.columns["id"]),
			Name:  field(record, r.columns["name"]),
			Grade: field(record, r.columns["grade"]),
		}
		if row.ID == "" && row.Name == "" && row.Grade == "" {
			continue
		}
		return row, nil
	}
}

// ReadAll reads every remaining row
func (r *Reader) ReadAll() ([]RecipientRow, error) {
	var rows []RecipientRow
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, *row)
	}
}

func field(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
