package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/internal/report"
	"github.com/fulqrun/meddpicc-cli/internal/session"
	"github.com/fulqrun/meddpicc-cli/internal/store"
	"github.com/fulqrun/meddpicc-cli/pkg/salesforce"
)

var importSFLimit int

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import opportunities and legacy answers",
}

var importSheetCmd = &cobra.Command{
	Use:   "sheet <file.csv|file.xlsx>",
	Short: "Import legacy per-pillar summaries from a spreadsheet",
	Long: "Reads a spreadsheet with an opportunity_id column, optional name and salesforce_id " +
		"columns, and one column per pillar holding the legacy flattened summary text.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := report.ReadSheet(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := importSheet(ctx, env.Service, recs, time.Now().UTC())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "opportunities: %d  responses: %d  unmatched blocks: %d  skipped rows: %d\n",
			stats.Opportunities, stats.Responses, stats.Unmatched, stats.Skipped)
		return nil
	},
}

var importSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Import open Salesforce opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sf, err := initSalesforce()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		created, updated, err := importSalesforce(ctx, st, sf, importSFLimit)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created: %d  updated: %d\n", created, updated)
		return nil
	},
}

func init() {
	importSalesforceCmd.Flags().IntVar(&importSFLimit, "limit", 200, "max opportunities to import")
	importCmd.AddCommand(importSheetCmd, importSalesforceCmd)
	rootCmd.AddCommand(importCmd)
}

type sheetStats struct {
	Opportunities int
	Responses     int
	Unmatched     int
	Skipped       int
}

// importSheet creates missing opportunities and merges the answers parsed
// from each pillar column. Parsed answers are stamped with asOf, so edits
// made later in the tool win over a re-import of the same sheet.
func importSheet(ctx context.Context, svc *session.Service, recs []report.SheetRecord, asOf time.Time) (sheetStats, error) {
	c := svc.Scorer().Catalog()
	minText := svc.Scorer().Config().MinTextLength

	pillars := c.Pillars()
	if lt := c.LitmusTest(); len(lt.Questions) > 0 {
		pillars = append(pillars, lt.AsPillar())
	}

	var stats sheetStats
	for i, rec := range recs {
		id := rec.Get("opportunity_id", "opportunity", "id")
		if id == "" {
			zap.L().Warn("import: row without opportunity id", zap.Int("row", i+2))
			stats.Skipped++
			continue
		}
		if err := ensureOpportunity(ctx, svc.Store(), model.Opportunity{
			ID:           id,
			Name:         rec.Get("name", "opportunity_name"),
			SalesforceID: rec.Get("salesforce_id", "sf_id"),
		}); err != nil {
			return stats, err
		}
		stats.Opportunities++

		var rs []model.Response
		for _, p := range pillars {
			text := rec.Get(p.ID, p.DisplayName)
			if text == "" {
				continue
			}
			parsed, err := qualify.ParseSummary(c, p.ID, text, minText)
			if err != nil {
				return stats, err
			}
			for _, u := range parsed.Unmatched {
				zap.L().Warn("import: unmatched summary block",
					zap.String("opportunity_id", id),
					zap.String("pillar", p.ID),
					zap.String("block", u),
				)
			}
			stats.Unmatched += len(parsed.Unmatched)
			for _, r := range parsed.Responses {
				r.UpdatedAt = asOf
				rs = append(rs, r)
			}
		}
		if len(rs) == 0 {
			continue
		}

		ss, err := svc.Open(ctx, id)
		if err != nil {
			return stats, err
		}
		n, err := ss.Merge(ctx, rs)
		if err != nil {
			return stats, eris.Wrapf(err, "import %s", id)
		}
		stats.Responses += n
	}
	return stats, nil
}

// ensureOpportunity creates opp at the first stage, or fills in a missing
// name or Salesforce ID on an existing one.
func ensureOpportunity(ctx context.Context, st store.Store, opp model.Opportunity) error {
	existing, err := st.GetOpportunity(ctx, opp.ID)
	switch {
	case err == nil:
		if (opp.Name == "" || opp.Name == existing.Name) && (opp.SalesforceID == "" || opp.SalesforceID == existing.SalesforceID) {
			return nil
		}
		if opp.Name == "" {
			opp.Name = existing.Name
		}
		if opp.SalesforceID == "" {
			opp.SalesforceID = existing.SalesforceID
		}
		opp.Stage = existing.Stage
	case eris.Is(err, store.ErrNotFound):
		opp.Stage = model.StageProspecting
	default:
		return err
	}
	opp.UpdatedAt = time.Now().UTC()
	return st.UpsertOpportunity(ctx, opp)
}

// importSalesforce mirrors open Salesforce opportunities into the store,
// keyed by their Salesforce ID.
func importSalesforce(ctx context.Context, st store.Store, sf salesforce.Client, limit int) (created, updated int, err error) {
	opps, err := salesforce.ListOpenOpportunities(ctx, sf, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, o := range opps {
		_, getErr := st.GetOpportunity(ctx, o.ID)
		isNew := eris.Is(getErr, store.ErrNotFound)
		if getErr != nil && !isNew {
			return created, updated, getErr
		}
		if err := ensureOpportunity(ctx, st, model.Opportunity{ID: o.ID, Name: o.Name, SalesforceID: o.ID}); err != nil {
			return created, updated, err
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	zap.L().Info("import: salesforce opportunities", zap.Int("created", created), zap.Int("updated", updated))
	return created, updated, nil
}
