package tabular

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadTable_Example(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.csv")
	if err := WriteExampleFile(path); err != nil {
		t.Fatalf("WriteExampleFile() error = %v", err)
	}

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}

	// Round trip: 4 data rows were written, 4 records come back.
	if tbl.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", tbl.Len())
	}

	wantNames := []string{"first_name", "second_name", "age", "height", "gender"}
	if got := tbl.Schema.Names(); len(got) != len(wantNames) {
		t.Fatalf("Schema.Names() = %v, want %v", got, wantNames)
	}
	for i, n := range wantNames {
		if tbl.Schema.Names()[i] != n {
			t.Errorf("Schema.Names()[%d] = %q, want %q", i, tbl.Schema.Names()[i], n)
		}
	}

	// Every record has the header's field count.
	for i, rec := range tbl.Records {
		if rec.Len() != 5 {
			t.Errorf("record %d Len() = %d, want 5", i, rec.Len())
		}
	}

	// By-name and by-index access agree, and values stay text.
	age, ok := tbl.Records[0].Get("age")
	if !ok {
		t.Fatal(`Get("age") not found`)
	}
	if age != "59" {
		t.Errorf(`Get("age") = %q, want "59"`, age)
	}
	if got := tbl.Records[0].At(2); got != "59" {
		t.Errorf("At(2) = %q, want %q", got, "59")
	}

	// Records come back in file order.
	wantFirst := []string{"Fred", "Peter", "Ann", "Ada"}
	for i, want := range wantFirst {
		got, _ := tbl.Records[i].Get("first_name")
		if got != want {
			t.Errorf("record %d first_name = %q, want %q", i, got, want)
		}
	}

	// Mean height rounds to 1.81.
	mean, err := Mean(tbl, "height")
	if err != nil {
		t.Fatalf("Mean() error = %v", err)
	}
	if got := math.Round(mean*100) / 100; got != 1.81 {
		t.Errorf("mean height = %.4f, want 1.81 to 2dp", mean)
	}
}

func TestRead_NameIndexEquivalence(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b,c\n1,2,3\nx,y,z\n"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for ri, rec := range tbl.Records {
		for i, name := range tbl.Schema.Names() {
			byName, ok := rec.Get(name)
			if !ok {
				t.Fatalf("record %d: Get(%q) not found", ri, name)
			}
			if byIndex := rec.At(i); byName != byIndex {
				t.Errorf("record %d field %q: by name %q, by index %q", ri, name, byName, byIndex)
			}
		}
	}
}

func TestRead_QuoteStripping(t *testing.T) {
	tbl, err := Read(strings.NewReader("\"name\",\"note\"\n\"Fred\",say \"hi\"\n"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := tbl.Schema.Names()[0]; got != "name" {
		t.Errorf("header field = %q, want %q", got, "name")
	}
	if got, _ := tbl.Records[0].Get("note"); got != "say hi" {
		t.Errorf("note = %q, want %q", got, "say hi")
	}
}

func TestRead_HeaderNewlineStripped(t *testing.T) {
	// The last header field must not retain the line terminator, so
	// by-name access works for the final column.
	tbl, err := Read(strings.NewReader("a,b\n1,2\n"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := tbl.Schema.Names()[1]; got != "b" {
		t.Errorf("last header field = %q, want %q", got, "b")
	}
	if _, ok := tbl.Records[0].Get("b"); !ok {
		t.Error(`Get("b") not found after header parse`)
	}
}

func TestRead_NoTrailingNewline(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b\n1,2"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	if got := tbl.Records[0].At(1); got != "2" {
		t.Errorf("At(1) = %q, want %q", got, "2")
	}
}

func TestRead_CRLF(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b\r\n1,2\r\n"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := tbl.Records[0].At(1); got != "2" {
		t.Errorf("At(1) = %q, want %q (carriage return not stripped?)", got, "2")
	}
}

func TestRead_FieldCountMismatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		got   int
	}{
		{"too few", "a,b,c\n1,2\n", 2, 2},
		{"too many", "a,b,c\n1,2,3\n4,5,6,7\n", 3, 4},
		{"blank line", "a,b,c\n1,2,3\n\n", 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), "bad.csv")
			if err == nil {
				t.Fatal("Read() expected error")
			}
			if !errors.Is(err, ErrFieldCount) {
				t.Fatalf("error = %v, want ErrFieldCount", err)
			}
			var re *RowError
			if !errors.As(err, &re) {
				t.Fatalf("error %T is not *RowError", err)
			}
			if re.Line != tt.line {
				t.Errorf("RowError.Line = %d, want %d", re.Line, tt.line)
			}
			if re.Got != tt.got {
				t.Errorf("RowError.Got = %d, want %d", re.Got, tt.got)
			}
			if re.Source != "bad.csv" {
				t.Errorf("RowError.Source = %q, want %q", re.Source, "bad.csv")
			}
		})
	}
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""), "empty.csv")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("error = %v, want ErrEmptyInput", err)
	}
}

func TestRead_HeaderOnly(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b,c\n"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tbl.Len())
	}
	if tbl.Schema.Len() != 3 {
		t.Errorf("Schema.Len() = %d, want 3", tbl.Schema.Len())
	}
}

func TestReadTable_MissingFile(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("ReadTable() expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestRecord_Conversions(t *testing.T) {
	path := writeTemp(t, "name,age,height\nFred,59,1.95\n")
	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	rec := tbl.Records[0]

	age, err := rec.Int("age")
	if err != nil {
		t.Fatalf("Int(age) error = %v", err)
	}
	if age != 59 {
		t.Errorf("Int(age) = %d, want 59", age)
	}

	h, err := rec.Float("height")
	if err != nil {
		t.Fatalf("Float(height) error = %v", err)
	}
	if h != 1.95 {
		t.Errorf("Float(height) = %v, want 1.95", h)
	}

	if _, err := rec.Int("name"); err == nil {
		t.Error("Int(name) expected error for non-numeric text")
	}
	if _, err := rec.Float("missing"); err == nil {
		t.Error("Float(missing) expected error for unknown field")
	}
}

func TestRecord_String(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b\n1,2\n"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	got := tbl.Records[0].String()
	if !strings.Contains(got, `a="1"`) || !strings.Contains(got, `b="2"`) {
		t.Errorf("String() = %q, want name=value pairs", got)
	}
}
