package reporting

import (
	"encoding/csv"
	"fmt"
	"io"

	"trade-outcome-lab/internal/domain"
)

// WriteCSV writes results with the export header, one line per result in input order.
func WriteCSV(w io.Writer, results []*domain.TradeResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(exportRecord(r)); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.Request.Row, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
