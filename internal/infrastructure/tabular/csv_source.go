package tabular

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"StockPredictor/internal/domain"
	"StockPredictor/internal/ports"
)

// CSVSource parses CSV payloads into raw tables. Type detection is disabled
// on purpose: the sanitizer owns all coercion decisions and needs the cells
// exactly as uploaded.
type CSVSource struct {
	logger *slog.Logger
}

var _ ports.TableSource = (*CSVSource)(nil)

// NewCSVSource wires an optional logger.
func NewCSVSource(logger *slog.Logger) *CSVSource {
	return &CSVSource{logger: logger}
}

// Load reads the full CSV stream. An unreadable or malformed source fails
// immediately with the underlying read error; a well-formed but empty file
// is an emptiness error attributable to the load stage.
func (s *CSVSource) Load(ctx context.Context, r io.Reader) (domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawTable{}, err
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return domain.RawTable{}, fmt.Errorf("read csv: %w", df.Err)
	}
	if df.Nrow() == 0 || df.Ncol() == 0 {
		return domain.RawTable{}, domain.ErrEmptyAfterLoad
	}

	records := df.Records() // first record is the header
	table := domain.RawTable{
		Columns: df.Names(),
		Rows:    records[1:],
	}

	if s.logger != nil {
		s.logger.Debug("csv loaded", "rows", len(table.Rows), "columns", len(table.Columns))
	}
	return table, nil
}
