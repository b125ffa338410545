package store

import (
	"github.com/google/uuid"
	"github.com/ipoole/tabular/internal/tabular"
)

// rowSource adapts a record slice to pgx.CopyFromSource for bulk
// loading dataset_rows. Line numbers start at 2, matching the record's
// position in the original file (line 1 is the header).
type rowSource struct {
	datasetID uuid.UUID
	records   []tabular.Record
	idx       int
}

func newRowSource(datasetID uuid.UUID, records []tabular.Record) *rowSource {
	return &rowSource{datasetID: datasetID, records: records, idx: -1}
}

func (r *rowSource) Next() bool {
	r.idx++
	return r.idx < len(r.records)
}

func (r *rowSource) Values() ([]any, error) {
	rec := r.records[r.idx]
	return []any{r.datasetID, r.idx + 2, rec.Values()}, nil
}

func (r *rowSource) Err() error { return nil }
