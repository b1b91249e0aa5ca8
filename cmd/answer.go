package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	answerPoints int
	answerJSON   bool
)

var answerCmd = &cobra.Command{
	Use:   "answer <opportunity> <pillar> <question> [answer...]",
	Short: "Set or clear one answer and print the new assessment",
	Long:  "Sets the answer to a question. With no answer text the stored answer is removed.",
	Args:  cobra.MinimumNArgs(3),
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

		var points *int
		if cmd.Flags().Changed("points") {
			points = &answerPoints
		}
		a, err := ss.Answer(ctx, args[1], args[2], strings.Join(args[3:], " "), points)
		if err != nil {
			return err
		}

		if answerJSON {
			return printJSON(cmd.OutOrStdout(), a)
		}
		return printAssessment(cmd.OutOrStdout(), env.Service.Scorer().Catalog(), a)
	},
}

func init() {
	answerCmd.Flags().IntVar(&answerPoints, "points", 0, "override the points the answer earns")
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "print the assessment as JSON")
	rootCmd.AddCommand(answerCmd)
}
