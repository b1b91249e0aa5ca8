package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

var (
	oppName  string
	oppSFID  string
	oppStage string

	oppListStage string
	oppLimit     int
)

var opportunityCmd = &cobra.Command{
	Use:     "opportunity",
	Aliases: []string{"opp"},
	Short:   "Manage stored opportunities",
}

var opportunityAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Create or rename an opportunity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := model.Stage(oppStage)
		if stage.Index() < 0 {
			return eris.Errorf("unknown stage %q", oppStage)
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opp := model.Opportunity{ID: args[0], Name: oppName, Stage: stage, SalesforceID: oppSFID, UpdatedAt: time.Now().UTC()}
		existing, err := st.GetOpportunity(ctx, args[0])
		switch {
		case err == nil:
			// Stage moves go through advance.
			opp.Stage = existing.Stage
			if opp.Name == "" {
				opp.Name = existing.Name
			}
			if opp.SalesforceID == "" {
				opp.SalesforceID = existing.SalesforceID
			}
		case !eris.Is(err, store.ErrNotFound):
			return err
		}

		if err := st.UpsertOpportunity(ctx, opp); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", opp.ID, opp.Name, opp.Stage)
		return nil
	},
}

var opportunityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List opportunities, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opps, err := st.ListOpportunities(ctx, store.OpportunityFilter{Stage: model.Stage(oppListStage), Limit: oppLimit})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tSTAGE\tSALESFORCE\tUPDATED")
		_, _ = fmt.Fprintln(w, "--\t----\t-----\t----------\t-------")
		for _, o := range opps {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.Name, o.Stage, o.SalesforceID, o.UpdatedAt.Format(time.DateTime))
		}
		return w.Flush()
	},
}

func init() {
	opportunityAddCmd.Flags().StringVar(&oppName, "name", "", "opportunity name")
	opportunityAddCmd.Flags().StringVar(&oppSFID, "sf-id", "", "Salesforce Opportunity ID")
	opportunityAddCmd.Flags().StringVar(&oppStage, "stage", string(model.StageProspecting), "initial stage for new opportunities")
	opportunityListCmd.Flags().StringVar(&oppListStage, "stage", "", "filter by stage")
	opportunityListCmd.Flags().IntVar(&oppLimit, "limit", 100, "max opportunities to list")

	opportunityCmd.AddCommand(opportunityAddCmd, opportunityListCmd)
	rootCmd.AddCommand(opportunityCmd)
}
