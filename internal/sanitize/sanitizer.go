package sanitize

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"StockPredictor/internal/domain"
)

// Options control the sparse-data heuristics. The defaults mirror the
// historical behavior; they are configurable because nothing about them is
// load-bearing.
type Options struct {
	// RowDropRatio: if fewer than this fraction of rows contain missing
	// values after coercion, those rows are dropped outright.
	RowDropRatio float64
	// ColumnDropRatio: when missingness is widespread, columns whose own
	// missing ratio exceeds this are dropped before rows are.
	ColumnDropRatio float64
}

// DefaultOptions returns the standard 50%/80% thresholds.
func DefaultOptions() Options {
	return Options{RowDropRatio: 0.5, ColumnDropRatio: 0.8}
}

// Sanitizer turns a raw mixed-type table into a strictly numeric, NaN-free
// matrix ready for supervised training, reporting everything it removed.
type Sanitizer struct {
	opts   Options
	logger *slog.Logger
}

// New builds a sanitizer; zero-valued options fall back to the defaults.
func New(opts Options, logger *slog.Logger) *Sanitizer {
	if opts.RowDropRatio <= 0 {
		opts.RowDropRatio = DefaultOptions().RowDropRatio
	}
	if opts.ColumnDropRatio <= 0 {
		opts.ColumnDropRatio = DefaultOptions().ColumnDropRatio
	}
	return &Sanitizer{opts: opts, logger: logger}
}

var dateKeywords = []string{"date", "time", "timestamp"}

// Clean runs the repair pipeline in strict order: forward/backward fill,
// column classification, date-column dropping, sparse column/row pruning.
// It never silently returns an empty table: emptiness is an error naming
// the stage that produced it, residual gaps are warnings in the report.
func (s *Sanitizer) Clean(raw domain.RawTable) (domain.CleanTable, domain.CleanReport, error) {
	var report domain.CleanReport

	if raw.Empty() {
		return domain.CleanTable{}, report, domain.ErrEmptyAfterLoad
	}

	filled := fillMissing(raw.Rows)

	// Classify columns: date-like names are dropped no matter their
	// content, everything else is coerced to float with failures
	// becoming missing values.
	keepIdx := make([]int, 0, len(raw.Columns))
	for c, name := range raw.Columns {
		if isDateLike(name) {
			report.DroppedDateColumns = append(report.DroppedDateColumns, name)
			continue
		}
		keepIdx = append(keepIdx, c)
	}
	if len(keepIdx) == 0 {
		return domain.CleanTable{}, report, fmt.Errorf(
			"%w: every column was date-like (%s)",
			domain.ErrEmptyAfterCleaning, strings.Join(report.DroppedDateColumns, ", "))
	}

	columns := make([]string, len(keepIdx))
	matrix := make([][]float64, len(filled))
	for i := range matrix {
		matrix[i] = make([]float64, len(keepIdx))
	}
	for j, c := range keepIdx {
		columns[j] = raw.Columns[c]
		for i, row := range filled {
			v, ok := coerce(cell(row, c))
			if !ok {
				report.CoercionFailures++
				v = math.NaN()
			}
			matrix[i][j] = v
		}
	}

	// Sparse-row / sparse-column decision.
	missingRows := countMissingRows(matrix)
	if missingRows > 0 {
		ratio := float64(missingRows) / float64(len(matrix))
		if ratio < s.opts.RowDropRatio {
			matrix = dropMissingRows(matrix)
			report.DroppedRows = missingRows
		} else {
			var sparse []string
			matrix, columns, sparse = dropSparseColumns(matrix, columns, s.opts.ColumnDropRatio)
			report.DroppedSparseColumns = sparse
			if len(columns) == 0 {
				return domain.CleanTable{}, report, fmt.Errorf(
					"%w: all remaining columns exceeded the %.0f%% missing threshold",
					domain.ErrEmptyAfterCleaning, s.opts.ColumnDropRatio*100)
			}
			kept := dropMissingRows(matrix)
			if len(kept) == 0 {
				// Dropping every row helps nobody; keep the gaps and let
				// the pre-training validation stop the pipeline.
				report.Warnings = append(report.Warnings,
					"missing values remain in every row after column pruning")
			} else {
				report.DroppedRows = len(matrix) - len(kept)
				matrix = kept
			}
		}
	}

	if anyMissing(matrix) {
		report.Warnings = append(report.Warnings, "missing values remain after cleaning")
	}

	if len(matrix) == 0 {
		return domain.CleanTable{}, report, fmt.Errorf(
			"%w: no rows survived missing-value pruning", domain.ErrEmptyAfterCleaning)
	}

	s.debug("cleaning done",
		"rows", len(matrix),
		"columns", len(columns),
		"dropped_rows", report.DroppedRows,
		"dropped_date_columns", len(report.DroppedDateColumns),
		"dropped_sparse_columns", len(report.DroppedSparseColumns),
		"coercion_failures", report.CoercionFailures)

	return domain.CleanTable{Columns: columns, Rows: matrix}, report, nil
}

// IsMissing reports whether a raw cell holds one of the missing markers.
func IsMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

func isDateLike(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range dateKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func coerce(v string) (float64, bool) {
	if IsMissing(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func cell(row []string, c int) string {
	if c >= len(row) {
		return ""
	}
	return row[c]
}

// fillMissing carries the nearest preceding value forward through every
// column; leading gaps take the nearest following value instead.
func fillMissing(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	out := make([][]string, len(rows))
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	for c := 0; c < width; c++ {
		last := ""
		haveLast := false
		for i := range out {
			if IsMissing(out[i][c]) {
				if haveLast {
					out[i][c] = last
				}
			} else {
				last = out[i][c]
				haveLast = true
			}
		}
		next := ""
		haveNext := false
		for i := len(out) - 1; i >= 0; i-- {
			if IsMissing(out[i][c]) {
				if haveNext {
					out[i][c] = next
				}
			} else {
				next = out[i][c]
				haveNext = true
			}
		}
	}
	return out
}

func countMissingRows(m [][]float64) int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if math.IsNaN(v) {
				n++
				break
			}
		}
	}
	return n
}

func dropMissingRows(m [][]float64) [][]float64 {
	kept := make([][]float64, 0, len(m))
	for _, row := range m {
		ok := true
		for _, v := range row {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, row)
		}
	}
	return kept
}

func dropSparseColumns(m [][]float64, columns []string, threshold float64) ([][]float64, []string, []string) {
	rows := len(m)
	keep := make([]int, 0, len(columns))
	var dropped []string
	for c := range columns {
		missing := 0
		for i := 0; i < rows; i++ {
			if math.IsNaN(m[i][c]) {
				missing++
			}
		}
		if float64(missing)/float64(rows) > threshold {
			dropped = append(dropped, columns[c])
			continue
		}
		keep = append(keep, c)
	}
	if len(keep) == len(columns) {
		return m, columns, nil
	}
	outCols := make([]string, len(keep))
	out := make([][]float64, rows)
	for j, c := range keep {
		outCols[j] = columns[c]
	}
	for i := 0; i < rows; i++ {
		row := make([]float64, len(keep))
		for j, c := range keep {
			row[j] = m[i][c]
		}
		out[i] = row
	}
	return out, outCols, dropped
}

func anyMissing(m [][]float64) bool {
	for _, row := range m {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

func (s *Sanitizer) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
