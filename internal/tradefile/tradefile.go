// Package tradefile reads trade request tables from CSV or XLSX uploads.
package tradefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"trade-outcome-lab/internal/domain"
)

// Required column names, matched case-insensitively after trimming.
const (
	ColumnDate      = "date"
	ColumnSymbol    = "symbol"
	ColumnMarketCap = "marketcapname"
	ColumnSector    = "sector"
)

// RequiredColumns lists the columns every upload must carry.
var RequiredColumns = []string{ColumnDate, ColumnSymbol, ColumnMarketCap, ColumnSector}

var (
	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("missing required columns")

	// ErrUnsupportedFormat is returned for file types other than CSV and XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when the file has no header row.
	ErrEmptyFile = errors.New("empty file")
)

// Format is an upload file type.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a Format from a file name extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%s: %w (want .csv or .xlsx)", name, ErrUnsupportedFormat)
	}
}

// ReadFile opens path and reads it according to its extension.
func ReadFile(path string) ([]domain.TradeRequest, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format)
}

// Read parses a trade table. Row numbers are zero-based over data rows;
// fully blank rows are skipped without consuming a number.
func Read(r io.Reader, format Format) ([]domain.TradeRequest, error) {
	var (
		rows [][]string
		err  error
		conv cellConverter
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, conv, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	return toRequests(rows, conv)
}

// cellConverter rewrites a raw date cell into text the resolver can parse.
type cellConverter func(raw string) string

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, cellConverter, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyFile
	}

	// Raw values keep date cells as serial numbers instead of locale-formatted text.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	conv := func(raw string) string {
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil || strings.ContainsAny(raw, "/-") {
			return raw
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return raw
		}
		return t.Format("2006-01-02")
	}
	return rows, conv, nil
}

// toRequests maps header positions and builds requests from the data rows.
func toRequests(rows [][]string, conv cellConverter) ([]domain.TradeRequest, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (required: %s)",
			ErrMissingColumns, strings.Join(missing, ", "), strings.Join(RequiredColumns, ", "))
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	requests := make([]domain.TradeRequest, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		date := cell(row, ColumnDate)
		if conv != nil && date != "" {
			date = conv(date)
		}
		requests = append(requests, domain.TradeRequest{
			Row:       len(requests),
			Symbol:    cell(row, ColumnSymbol),
			EntryDate: date,
			MarketCap: cell(row, ColumnMarketCap),
			Sector:    cell(row, ColumnSector),
		})
	}
	return requests, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
