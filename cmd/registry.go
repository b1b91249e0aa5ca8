package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fulqrun/meddpicc-cli/internal/registry"
)

var registryJSON bool

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the Notion question registry",
}

var registryPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the catalog questions to the Notion question database",
	Long: "Writes every catalog question to the registry database, updating existing " +
		"pages matched by pillar and question ID. Registry questions are not overlaid " +
		"first, so the catalog file or built-in default is what gets published.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("notion"); err != nil {
			return err
		}
		c, err := baseCatalog()
		if err != nil {
			return err
		}
		res, err := registry.Publish(cmd.Context(), initNotion(), cfg.Notion.QuestionDB, c)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created: %d  updated: %d\n", res.Created, res.Updated)
		return nil
	},
}

var registryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the questions in the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			entries []registry.Entry
			err     error
		)
		if questionsFile != "" {
			entries, err = registry.LoadEntriesFromFile(questionsFile)
		} else {
			if err := cfg.Validate("notion"); err != nil {
				return err
			}
			entries, err = registry.LoadQuestions(cmd.Context(), initNotion(), cfg.Notion.QuestionDB)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if registryJSON {
			return printJSON(out, entries)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "PILLAR\tQUESTION\tTYPE\tREQUIRED\tPROMPT")
		_, _ = fmt.Fprintln(w, "------\t--------\t----\t--------\t------")
		for _, e := range entries {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", e.PillarID, e.Question.ID, e.Question.Kind, e.Question.Required, e.Question.Prompt)
		}
		return w.Flush()
	},
}

func init() {
	registryShowCmd.Flags().BoolVar(&registryJSON, "json", false, "print as JSON")
	registryCmd.AddCommand(registryPublishCmd, registryShowCmd)
	rootCmd.AddCommand(registryCmd)
}
