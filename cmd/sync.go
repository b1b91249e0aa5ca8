package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/crmsync"
	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

var (
	syncCheckFields bool
	syncStage       string
)

var syncCmd = &cobra.Command{
	Use:   "sync [opportunity...]",
	Short: "Write assessments to Salesforce Opportunity fields",
	Long: "Writes the overall score, level, litmus score, next actions and per-pillar " +
		"scores and summaries to the linked Salesforce Opportunities. With no arguments " +
		"every opportunity with a Salesforce ID is synced.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sf, err := initSalesforce()
		if err != nil {
			return err
		}
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fields, err := syncFields(ctx, env.Service.Scorer().Catalog())
		if err != nil {
			return err
		}
		syncer := crmsync.New(sf, env.Service, cfg.Sync, fields)
		out := cmd.OutOrStdout()

		if syncCheckFields {
			missing, err := syncer.CheckFields(ctx)
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				_, _ = fmt.Fprintln(out, "all fields present")
				return nil
			}
			for _, f := range missing {
				_, _ = fmt.Fprintf(out, "missing: %s\n", f)
			}
			return eris.Errorf("%d Opportunity fields missing or not updateable", len(missing))
		}

		if len(args) > 0 {
			var failed int
			for _, id := range args {
				if err := syncer.SyncOne(ctx, id); err != nil {
					zap.L().Error("sync failed", zap.String("opportunity_id", id), zap.Error(err))
					_, _ = fmt.Fprintf(out, "%s: %v\n", id, err)
					failed++
					continue
				}
				_, _ = fmt.Fprintf(out, "%s: synced\n", id)
			}
			if failed > 0 {
				return eris.Errorf("%d of %d opportunities failed to sync", failed, len(args))
			}
			return nil
		}

		res, err := syncer.SyncAll(ctx, store.OpportunityFilter{Stage: model.Stage(syncStage)})
		if res != nil {
			_, _ = fmt.Fprintf(out, "synced: %d  skipped: %d  failed: %d\n", res.Synced, res.Skipped, res.Failed)
			for _, e := range res.Errors {
				_, _ = fmt.Fprintf(out, "  %s\n", e)
			}
		}
		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncCheckFields, "check-fields", false, "verify the mapped Opportunity fields exist and exit")
	syncCmd.Flags().StringVar(&syncStage, "stage", "", "only sync opportunities at this stage")
	rootCmd.AddCommand(syncCmd)
}
