package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/internal/session"
)

var advanceDryRun bool

var gatesCmd = &cobra.Command{
	Use:   "gates <opportunity> [target-stage]",
	Short: "Show stage-gate readiness",
	Args:  cobra.RangeArgs(1, 2),
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
		_, _ = fmt.Fprintf(out, "Current stage: %s\n", ss.Opportunity().Stage)
		if len(args) == 2 {
			target := model.Stage(args[1])
			if target.Index() < 0 {
				return eris.Errorf("unknown stage %q", args[1])
			}
			printGate(out, ss.Gate(target))
			return nil
		}
		for _, st := range env.Service.Evaluator().AllGates(ss.Assess()) {
			printGate(out, st)
		}
		return nil
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance <opportunity> <target-stage>",
	Short: "Move an opportunity to the next stage when its gate is ready",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := model.Stage(args[1])
		if target.Index() < 0 {
			return eris.Errorf("unknown stage %q", args[1])
		}

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

		from := ss.Opportunity().Stage
		st, err := ss.Advance(ctx, target, !advanceDryRun)
		out := cmd.OutOrStdout()
		printGate(out, st)
		if err != nil {
			if eris.Is(err, session.ErrGateNotReady) {
				return eris.Errorf("cannot advance %s from %s to %s", args[0], from, target)
			}
			return err
		}
		if advanceDryRun {
			_, _ = fmt.Fprintf(out, "%s can advance from %s to %s\n", args[0], from, target)
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s advanced from %s to %s\n", args[0], from, target)
		return nil
	},
}

func init() {
	advanceCmd.Flags().BoolVar(&advanceDryRun, "dry-run", false, "check the gate without changing the stage")
	rootCmd.AddCommand(gatesCmd, advanceCmd)
}

func printGate(out io.Writer, st qualify.GateStatus) {
	mark := "not ready"
	if st.Ready {
		mark = "ready"
	}
	_, _ = fmt.Fprintf(out, "%s (%s)\n", model.GateKey(st.From, st.To), mark)
	for _, cs := range st.Criteria {
		box := "[ ]"
		if cs.Met {
			box = "[x]"
		}
		_, _ = fmt.Fprintf(out, "  %s %s: %s\n", box, cs.Criterion, cs.Reason)
	}
}
