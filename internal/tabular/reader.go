package tabular

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrFieldCount reports a data line whose comma-split token count does
// not match the header's field count. It is always wrapped in a
// *RowError carrying the source name and line number.
var ErrFieldCount = errors.New("wrong number of fields")

// ErrEmptyInput reports input with no header line at all.
var ErrEmptyInput = errors.New("empty input: no header line")

// RowError describes a malformed data line. A single malformed line
// aborts the entire read; there is no partial-result recovery.
type RowError struct {
	Source string // file path or reader name
	Line   int    // 1-based line number in the source
	Want   int    // header field count
	Got    int    // token count on the offending line
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v: expected %d fields, got %d",
		e.Source, e.Line, e.Err, e.Want, e.Got)
}

func (e *RowError) Unwrap() error { return e.Err }

// ReadTable reads the delimited file at path into a Table. The file
// handle is closed on every exit path. The first line supplies the
// field names; each remaining line becomes one Record, in file order.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read reads delimited text from r into a Table. The name is used in
// error messages and becomes the Table's Name; pass the file path when
// reading from a file.
//
// Processing per line: every literal double-quote character is removed,
// exactly one trailing newline (and a preceding carriage return, for
// CRLF input) is stripped, and the line is split on commas. The header
// line is treated identically, so the last field name never retains a
// line terminator. A data line whose token count differs from the
// header's fails the whole read with a *RowError.
func Read(r io.Reader, name string) (*Table, error) {
	br := bufio.NewReader(r)

	header, err := readLine(br)
	if err == io.EOF && header == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	schema := NewSchema(splitLine(header))
	table := &Table{Name: name, Schema: schema}

	for line := 2; ; line++ {
		raw, err := readLine(br)
		if err == io.EOF && raw == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("%s: read line %d: %w", name, line, err)
		}

		values := splitLine(raw)
		if len(values) != schema.Len() {
			return nil, &RowError{
				Source: name,
				Line:   line,
				Want:   schema.Len(),
				Got:    len(values),
				Err:    ErrFieldCount,
			}
		}
		table.Records = append(table.Records, Record{schema: schema, values: values})

		if err == io.EOF {
			break
		}
	}

	return table, nil
}

// readLine returns the next line with at most one trailing newline
// stripped. A trailing carriage return is stripped with it, so CRLF
// sources behave the same as LF sources. io.EOF is returned alongside
// the final line when the source lacks a terminator.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, err
}

// splitLine removes literal double quotes and splits on commas.
// No escaping: a quote anywhere in a value is simply discarded, and
// embedded commas are not supported.
func splitLine(line string) []string {
	return strings.Split(strings.ReplaceAll(line, `"`, ""), ",")
}
