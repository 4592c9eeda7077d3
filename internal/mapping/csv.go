package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVExporter streams rendered rows straight to the response writer. Rows
// are written one at a time, in lockstep with the paginated reader, so
// export size never bounds memory. The first write failure aborts the
// whole export; partial output is not a valid file.
type CSVExporter struct {
	engine *Engine
	w      *csv.Writer
}

func NewCSVExporter(engine *Engine, w io.Writer) *CSVExporter {
	return &CSVExporter{engine: engine, w: csv.NewWriter(w)}
}

func (e *CSVExporter) WriteHeader() error {
	if err := e.w.Write(e.engine.HeaderRowCSV()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

func (e *CSVExporter) WriteRow(row Row) error {
	if err := e.w.Write(e.engine.RenderCSV(row)); err != nil {
		return fmt.Errorf("write csv row %s: %w", row.UUID, err)
	}
	// Flush per row so the writer surfaces stream failures before the
	// next row is fetched.
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return fmt.Errorf("flush csv row %s: %w", row.UUID, err)
	}
	return nil
}

func (e *CSVExporter) Close() error {
	e.w.Flush()
	return e.w.Error()
}
