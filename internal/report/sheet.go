package report

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetRecord is one data row keyed by normalized header name.
type SheetRecord map[string]string

// Get returns the value of the first column present among names.
func (r SheetRecord) Get(names ...string) string {
	for _, n := range names {
		if v, ok := r[NormalizeHeader(n)]; ok {
			return v
		}
	}
	return ""
}

// NormalizeHeader lowercases a column name and folds spaces, dashes and
// underscores away, so "Economic Buyer", "economic_buyer" and
// "economicBuyer" all match.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// ReadSheet reads a CSV or XLSX file whose first row is a header. Blank rows
// are skipped. The format follows the file extension.
func ReadSheet(path string) ([]SheetRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return nil, eris.Errorf("report: unsupported sheet type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open csv")
	}
	defer f.Close() //nolint:errcheck
	return readCSV(f)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "report: read csv row")
		}
		rows = append(rows, rec)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("report: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func toRecords(rows [][]string) []SheetRecord {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = NormalizeHeader(h)
	}

	var out []SheetRecord
	for _, row := range rows[1:] {
		rec := make(SheetRecord, len(header))
		blank := true
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			rec[h] = v
			if v != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}
