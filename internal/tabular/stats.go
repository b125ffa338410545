package tabular

import "fmt"

// ColumnAggregation holds aggregated values for a single numeric column.
type ColumnAggregation struct {
	Column string
	Sum    float64
	Avg    float64
	Min    float64
	Max    float64
	Count  int64
}

// Aggregate computes Sum, Avg, Min, Max and Count over the named column,
// converting each value to float64 on the fly. The table itself stores
// only text; a value that does not parse as a number fails the whole
// aggregation with an error naming the offending record.
func Aggregate(t *Table, column string) (*ColumnAggregation, error) {
	if _, ok := t.Schema.Index(column); !ok {
		return nil, fmt.Errorf("%s: no such column %q", t.Name, column)
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("%s: no records to aggregate", t.Name)
	}

	agg := &ColumnAggregation{Column: column}
	for i, rec := range t.Records {
		v, err := rec.Float(column)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", t.Name, i, err)
		}
		if agg.Count == 0 || v < agg.Min {
			agg.Min = v
		}
		if agg.Count == 0 || v > agg.Max {
			agg.Max = v
		}
		agg.Sum += v
		agg.Count++
	}
	agg.Avg = agg.Sum / float64(agg.Count)
	return agg, nil
}

// Mean returns the arithmetic mean of the named column.
func Mean(t *Table, column string) (float64, error) {
	agg, err := Aggregate(t, column)
	if err != nil {
		return 0, err
	}
	return agg.Avg, nil
}
