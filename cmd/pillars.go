package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
)

var pillarsJSON bool

var pillarsCmd = &cobra.Command{
	Use:   "pillars",
	Short: "List the qualification pillars, litmus test and stage gates",
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer, err := initScorer(cmd.Context())
		if err != nil {
			return err
		}
		c := scorer.Catalog()

		out := cmd.OutOrStdout()
		if pillarsJSON {
			return printJSON(out, c.File())
		}
		return printCatalog(out, c)
	},
}

func init() {
	pillarsCmd.Flags().BoolVar(&pillarsJSON, "json", false, "print the catalog as JSON")
	rootCmd.AddCommand(pillarsCmd)
}

func printCatalog(out io.Writer, c *qualify.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PILLAR\tQUESTION\tTYPE\tREQUIRED\tMAX\tPROMPT")
	_, _ = fmt.Fprintln(w, "------\t--------\t----\t--------\t---\t------")

	pillars := c.Pillars()
	if lt := c.LitmusTest(); len(lt.Questions) > 0 {
		pillars = append(pillars, lt.AsPillar())
	}
	for _, p := range pillars {
		for _, q := range p.Questions {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%s\n", p.ID, q.ID, q.Kind, q.Required, q.MaxPoints(), q.Prompt)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out)
	for _, g := range c.StageGates() {
		_, _ = fmt.Fprintf(out, "%s: %s\n", g.Key(), strings.Join(g.Criteria, ", "))
	}
	return nil
}

// printAssessment writes a human-readable assessment.
func printAssessment(out io.Writer, c *qualify.Catalog, a model.Assessment) error {
	_, _ = fmt.Fprintf(out, "Overall: %d%% (%s)  Litmus: %d%%\n\n", a.OverallScore, a.Level, a.LitmusScore)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PILLAR\tSCORE")
	for _, p := range c.Pillars() {
		_, _ = fmt.Fprintf(w, "%s\t%d%%\n", p.DisplayName, a.PillarScores[p.ID])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if ready := a.ReadyGates(); len(ready) > 0 {
		sort.Strings(ready)
		_, _ = fmt.Fprintf(out, "\nReady gates: %s\n", strings.Join(ready, ", "))
	}
	if len(a.NextActions) > 0 {
		_, _ = fmt.Fprintln(out, "\nNext actions:")
		for _, act := range a.NextActions {
			_, _ = fmt.Fprintf(out, "  - %s\n", act)
		}
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
