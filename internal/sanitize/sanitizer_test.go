package sanitize

import (
	"errors"
	"testing"

	"StockPredictor/internal/domain"
)

func TestForwardFillCarriesPrecedingValue(t *testing.T) {
	t.Parallel()

	raw := domain.RawTable{
		Columns: []string{"open", "high", "close"},
		Rows: [][]string{
			{"1", "2", "3"},
			{"", "5", "6"},
			{"7", "8", "9"},
		},
	}

	clean, report, err := New(Options{}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(clean.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(clean.Rows))
	}
	if clean.Rows[1][0] != 1 {
		t.Fatalf("expected carried-forward value 1, got %v", clean.Rows[1][0])
	}
	if report.DroppedRows != 0 {
		t.Fatalf("no rows should be dropped, got %d", report.DroppedRows)
	}
}

func TestBackwardFillRepairsLeadingGap(t *testing.T) {
	t.Parallel()

	raw := domain.RawTable{
		Columns: []string{"a", "b"},
		Rows: [][]string{
			{"", "10"},
			{"2", "20"},
		},
	}

	clean, _, err := New(Options{}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if clean.Rows[0][0] != 2 {
		t.Fatalf("expected back-filled value 2, got %v", clean.Rows[0][0])
	}
}

func TestDateLikeColumnsAlwaysDropped(t *testing.T) {
	t.Parallel()

	raw := domain.RawTable{
		Columns: []string{"Date", "trade_timestamp", "Close"},
		Rows: [][]string{
			{"2023-01-01", "1672531200", "101"},
			{"2023-01-02", "1672617600", "102"},
		},
	}

	clean, report, err := New(Options{}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(clean.Columns) != 1 || clean.Columns[0] != "Close" {
		t.Fatalf("expected only Close to survive, got %v", clean.Columns)
	}
	// trade_timestamp is numeric-convertible but still dropped by name.
	if len(report.DroppedDateColumns) != 2 {
		t.Fatalf("expected 2 dropped date columns, got %v", report.DroppedDateColumns)
	}
}

func TestUnconvertibleTextBecomesMissingThenRowsDrop(t *testing.T) {
	t.Parallel()

	raw := domain.RawTable{
		Columns: []string{"price", "note"},
		Rows: [][]string{
			{"1", "2"},
			{"2", "oops"},
			{"3", "4"},
			{"4", "5"},
			{"5", "6"},
		},
	}

	clean, report, err := New(Options{}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	// One row affected out of five (<50%): that row is dropped.
	// Fill happens before coercion, so only the coercion failure is a gap.
	if len(clean.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(clean.Rows))
	}
	if report.DroppedRows != 1 {
		t.Fatalf("expected 1 dropped row, got %d", report.DroppedRows)
	}
	if report.CoercionFailures != 1 {
		t.Fatalf("expected 1 coercion failure, got %d", report.CoercionFailures)
	}
}

func TestSparseColumnDroppedBeforeRows(t *testing.T) {
	t.Parallel()

	// Column "junk" is unconvertible in every row (100% > 80%); every row
	// is therefore missing-containing (>= 50%), so the column must go
	// first and all rows survive.
	raw := domain.RawTable{
		Columns: []string{"price", "junk"},
		Rows: [][]string{
			{"1", "x"},
			{"2", "y"},
			{"3", "z"},
			{"4", "w"},
		},
	}

	clean, report, err := New(Options{}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(clean.Columns) != 1 || clean.Columns[0] != "price" {
		t.Fatalf("expected junk column to be dropped, got %v", clean.Columns)
	}
	if len(report.DroppedSparseColumns) != 1 || report.DroppedSparseColumns[0] != "junk" {
		t.Fatalf("expected junk in dropped sparse columns, got %v", report.DroppedSparseColumns)
	}
	if len(clean.Rows) != 4 {
		t.Fatalf("expected all 4 rows to survive, got %d", len(clean.Rows))
	}
}

func TestFullyPopulatedRowSurvives(t *testing.T) {
	t.Parallel()

	// Under 80% missing in every column and one fully-populated row:
	// output must not be empty.
	raw := domain.RawTable{
		Columns: []string{"a", "b"},
		Rows: [][]string{
			{"1", "2"},
			{"x", "3"},
			{"4", "y"},
		},
	}

	clean, _, err := New(Options{}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if clean.Empty() {
		t.Fatal("cleaned table must not be empty when a fully-populated row existed")
	}
}

func TestResidualMissingWarnsInsteadOfFailing(t *testing.T) {
	t.Parallel()

	// Both columns hold sporadic garbage so every row has a gap, yet no
	// column crosses the 80% threshold: row-dropping would empty the
	// table, so the sanitizer keeps the rows and records a warning.
	raw := domain.RawTable{
		Columns: []string{"a", "b"},
		Rows: [][]string{
			{"x", "1"},
			{"2", "y"},
		},
	}

	clean, report, err := New(Options{}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("expected a residual-missing warning")
	}
	if len(clean.Rows) != 2 {
		t.Fatalf("expected rows to be kept, got %d", len(clean.Rows))
	}
}

func TestEmptyInputReportsLoadStage(t *testing.T) {
	t.Parallel()

	_, _, err := New(Options{}, nil).Clean(domain.RawTable{})
	if !errors.Is(err, domain.ErrEmptyAfterLoad) {
		t.Fatalf("expected ErrEmptyAfterLoad, got %v", err)
	}
}

func TestAllDateColumnsReportsCleaningStage(t *testing.T) {
	t.Parallel()

	raw := domain.RawTable{
		Columns: []string{"date", "Time"},
		Rows:    [][]string{{"a", "b"}},
	}

	_, _, err := New(Options{}, nil).Clean(raw)
	if !errors.Is(err, domain.ErrEmptyAfterCleaning) {
		t.Fatalf("expected ErrEmptyAfterCleaning, got %v", err)
	}
}

func TestThresholdsAreConfigurable(t *testing.T) {
	t.Parallel()

	// Two of three rows carry gaps (67%). Lowering ColumnDropRatio to 0.5
	// makes column a (67% missing) prunable where the default 0.8 keeps it.
	raw := domain.RawTable{
		Columns: []string{"a", "b"},
		Rows: [][]string{
			{"1", "1"},
			{"x", "2"},
			{"y", "3"},
		},
	}

	clean, report, err := New(Options{RowDropRatio: 0.6, ColumnDropRatio: 0.5}, nil).Clean(raw)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(report.DroppedSparseColumns) != 1 || report.DroppedSparseColumns[0] != "a" {
		t.Fatalf("expected column a dropped, got %v", report.DroppedSparseColumns)
	}
	if len(clean.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(clean.Rows))
	}
}

func TestIsMissingMarkers(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"", " ", "NA", "nan", "NaN", "null", "NULL"} {
		if !IsMissing(v) {
			t.Fatalf("expected %q to be missing", v)
		}
	}
	for _, v := range []string{"0", "-1.5", "text"} {
		if IsMissing(v) {
			t.Fatalf("expected %q not to be missing", v)
		}
	}
}
