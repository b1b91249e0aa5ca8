// Package report renders assessments as tables, CSV, JSON and XLSX, and
// reads the legacy qualification spreadsheets the import command consumes.
package report

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/session"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", eris.Errorf("report: unknown format %q", s)
}

// Row is one opportunity's assessment.
type Row struct {
	OpportunityID string           `json:"opportunity_id"`
	Name          string           `json:"name"`
	Stage         model.Stage      `json:"stage"`
	Assessment    model.Assessment `json:"assessment"`
}

// ReadyGates returns the keys of the row's ready gates, sorted.
func (r Row) ReadyGates() []string {
	g := r.Assessment.ReadyGates()
	sort.Strings(g)
	return g
}

// Report is a set of rows plus the pillars that label their score columns.
type Report struct {
	Pillars []model.Pillar
	Rows    []Row
}

// Build assesses every opportunity matching filter, at most concurrency at
// a time. Rows keep the store's listing order.
func Build(ctx context.Context, svc *session.Service, filter store.OpportunityFilter, concurrency int) (*Report, error) {
	opps, err := svc.Store().ListOpportunities(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "report: list opportunities")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	rows := make([]Row, len(opps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, opp := range opps {
		g.Go(func() error {
			a, err := svc.Assess(gctx, opp.ID)
			if err != nil {
				return eris.Wrapf(err, "report: assess %s", opp.ID)
			}
			rows[i] = Row{OpportunityID: opp.ID, Name: opp.Name, Stage: opp.Stage, Assessment: a}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Debug("report: built", zap.Int("rows", len(rows)))
	return &Report{Pillars: svc.Scorer().Catalog().Pillars(), Rows: rows}, nil
}

// Header returns the column names shared by the table, CSV and XLSX outputs.
func (r *Report) Header() []string {
	h := []string{"OPPORTUNITY", "NAME", "STAGE", "OVERALL", "LEVEL", "LITMUS"}
	for _, p := range r.Pillars {
		h = append(h, strings.ToUpper(p.DisplayName))
	}
	return append(h, "READY GATES")
}

// Records returns every row as strings in Header order.
func (r *Report) Records() [][]string {
	out := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		a := row.Assessment
		rec := []string{
			row.OpportunityID,
			row.Name,
			string(row.Stage),
			itoa(a.OverallScore),
			string(a.Level),
			itoa(a.LitmusScore),
		}
		for _, p := range r.Pillars {
			rec = append(rec, itoa(a.PillarScores[p.ID]))
		}
		rec = append(rec, strings.Join(row.ReadyGates(), " "))
		out = append(out, rec)
	}
	return out
}

// Write renders the report in the given format.
func (r *Report) Write(w io.Writer, f Format) error {
	switch f {
	case FormatTable, "":
		return r.writeTable(w)
	case FormatCSV:
		return r.writeCSV(w)
	case FormatJSON:
		return r.writeJSON(w)
	case FormatXLSX:
		return r.writeXLSX(w)
	}
	return eris.Errorf("report: unknown format %q", f)
}
