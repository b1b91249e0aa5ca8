package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/report"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

var (
	exportFormat      string
	exportOut         string
	exportStage       string
	exportConcurrency int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export assessments for all opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if format == report.FormatXLSX && exportOut == "" {
			return eris.New("xlsx export needs --out")
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rep, err := report.Build(ctx, env.Service, store.OpportunityFilter{Stage: model.Stage(exportStage)}, exportConcurrency)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOut)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		return rep.Write(w, format)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "table", "output format: table, csv, json or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportStage, "stage", "", "only export opportunities at this stage")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", 4, "assessments computed in parallel")
	rootCmd.AddCommand(exportCmd)
}
