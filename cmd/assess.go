package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	assessJSON     bool
	assessSnapshot bool
)

var assessCmd = &cobra.Command{
	Use:   "assess <opportunity>",
	Short: "Score an opportunity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ss, err := env.Service.Open(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if assessSnapshot {
			rec, err := ss.Snapshot(ctx)
			if err != nil {
				return err
			}
			if assessJSON {
				return printJSON(out, rec)
			}
			_, _ = fmt.Fprintf(out, "Snapshot %s saved\n\n", rec.ID)
			return printAssessment(out, env.Service.Scorer().Catalog(), rec.Assessment)
		}

		a := ss.Assess()
		if assessJSON {
			return printJSON(out, a)
		}
		return printAssessment(out, env.Service.Scorer().Catalog(), a)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <opportunity>",
	Short: "Report missing or malformed answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ss, err := env.Service.Open(ctx, args[0])
		if err != nil {
			return err
		}

		errs := ss.Validate()
		out := cmd.OutOrStdout()
		if len(errs) == 0 {
			_, _ = fmt.Fprintln(out, "valid")
			return nil
		}
		for _, fe := range errs {
			_, _ = fmt.Fprintf(out, "%s: %s\n", fe.Field, fe.Message)
		}
		return eris.Errorf("%d validation errors", len(errs))
	},
}

func init() {
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "print as JSON")
	assessCmd.Flags().BoolVar(&assessSnapshot, "snapshot", false, "store the assessment as a snapshot")
	rootCmd.AddCommand(assessCmd, validateCmd)
}
