package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

const sheetName = "Assessments"

func (r *Report) writeTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := r.Header()
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	dashes := make([]string, len(header))
	for i, h := range header {
		dashes[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(dashes, "\t"))
	for _, rec := range r.Records() {
		_, _ = fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	return eris.Wrap(tw.Flush(), "report: write table")
}

func (r *Report) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(r.Header()))
	for _, h := range r.Header() {
		header = append(header, strings.ToLower(strings.ReplaceAll(h, " ", "_")))
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	if err := cw.WriteAll(r.Records()); err != nil {
		return eris.Wrap(err, "report: write csv")
	}
	return nil
}

func (r *Report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	rows := r.Rows
	if rows == nil {
		rows = []Row{}
	}
	return eris.Wrap(enc.Encode(rows), "report: write json")
}

// writeXLSX writes one sheet with numeric score cells.
func (r *Report) writeXLSX(w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	hdr := sheet.AddRow()
	for _, h := range r.Header() {
		c := hdr.AddCell()
		c.SetString(h)
		c.GetStyle().Font.Bold = true
	}

	numeric := r.numericColumns()
	for _, rec := range r.Records() {
		row := sheet.AddRow()
		for i, v := range rec {
			c := row.AddCell()
			if numeric[i] {
				n, _ := strconv.Atoi(v)
				c.SetInt(n)
				continue
			}
			c.SetString(v)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}

// numericColumns marks the score columns of Header.
func (r *Report) numericColumns() map[int]bool {
	cols := map[int]bool{3: true, 5: true}
	for i := range r.Pillars {
		cols[6+i] = true
	}
	return cols
}

func itoa(n int) string { return strconv.Itoa(n) }
