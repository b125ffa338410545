package store

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ipoole/tabular/internal/tabular"
)

func TestRowSource(t *testing.T) {
	tbl, err := tabular.Read(strings.NewReader("a,b\n1,2\n3,4\n"), "mem")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	id := uuid.New()
	src := newRowSource(id, tbl.Records)

	var lines []int
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			t.Fatalf("Values() error = %v", err)
		}
		if len(values) != 3 {
			t.Fatalf("Values() length = %d, want 3", len(values))
		}
		if values[0] != id {
			t.Errorf("dataset_id = %v, want %v", values[0], id)
		}
		lines = append(lines, values[1].(int))
		fields := values[2].([]string)
		if len(fields) != 2 {
			t.Errorf("fields length = %d, want 2", len(fields))
		}
	}
	if src.Next() {
		t.Error("Next() = true after exhaustion")
	}
	if src.Err() != nil {
		t.Errorf("Err() = %v, want nil", src.Err())
	}

	// Line numbers follow file positions: header is line 1.
	if len(lines) != 2 || lines[0] != 2 || lines[1] != 3 {
		t.Errorf("line numbers = %v, want [2 3]", lines)
	}
}

func TestRowSource_Empty(t *testing.T) {
	src := newRowSource(uuid.New(), nil)
	if src.Next() {
		t.Error("Next() = true for empty source")
	}
}
