package domain

// RawTable is the uploaded dataset exactly as parsed: named columns and
// string cells that may hold numbers, text, or missing-value markers.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no rows or no columns.
func (t RawTable) Empty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// CleanTable is the sanitized dataset: strictly numeric cells, the last
// column designated as the regression target.
type CleanTable struct {
	Columns []string
	Rows    [][]float64
}

// Empty reports whether the table has no rows or no columns.
func (t CleanTable) Empty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// NumFeatures returns the count of feature columns (all but the target).
func (t CleanTable) NumFeatures() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns) - 1
}

// SplitXY separates the table into a feature matrix and a target vector.
// The last column is the target.
func (t CleanTable) SplitXY() (x [][]float64, y []float64) {
	x = make([][]float64, len(t.Rows))
	y = make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		features := make([]float64, len(row)-1)
		copy(features, row[:len(row)-1])
		x[i] = features
		y[i] = row[len(row)-1]
	}
	return x, y
}

// CleanReport describes what the sanitizer removed or altered so the caller
// can present actionable guidance instead of a silently shrunken dataset.
type CleanReport struct {
	DroppedDateColumns   []string
	DroppedSparseColumns []string
	DroppedRows          int
	CoercionFailures     int
	Warnings             []string
}
