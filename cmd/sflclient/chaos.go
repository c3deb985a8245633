package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jnnngs/5250Web/internal/chaos"
	"github.com/jnnngs/5250Web/internal/controller"
	"github.com/jnnngs/5250Web/internal/dom"
)

type chaosParams struct {
	URL     string
	Steps   int
	Seed    int64
	Budget  time.Duration
	Delay   time.Duration
	Edit    float64
	Weights map[string]int
	RunsDir string
}

func newChaosCmd() *cobra.Command {
	defaults := chaos.DefaultConfig()
	params := chaosParams{Weights: map[string]int{}}
	chaosCmd := &cobra.Command{
		Use:   "chaos",
		Short: "Press random keys and type random values, checking that edits survive paging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChaos(cmd.Context(), cmd.OutOrStdout(), params, nil)
		},
	}
	chaosCmd.Flags().StringVar(&params.URL, "url", "", "address of the display-file page")
	chaosCmd.Flags().IntVar(&params.Steps, "steps", defaults.MaxSteps, "number of keys to press")
	chaosCmd.Flags().Int64Var(&params.Seed, "seed", 0, "random seed (0: derive from the clock)")
	chaosCmd.Flags().DurationVar(&params.Budget, "budget", defaults.TimeBudget, "time allowed for the run")
	chaosCmd.Flags().DurationVar(&params.Delay, "delay", 0, "pause between keys")
	chaosCmd.Flags().Float64Var(&params.Edit, "edit-rate", defaults.EditRate, "chance of typing before each key")
	chaosCmd.Flags().StringToIntVar(&params.Weights, "weights", defaults.KeyWeights, "key weights, e.g. PgDn=4,PgUp=3,Enter=1")
	chaosCmd.Flags().StringVar(&params.RunsDir, "runs-dir", "", "directory to save the run in")
	_ = chaosCmd.MarkFlagRequired("url")
	return chaosCmd
}

func runChaos(ctx context.Context, out io.Writer, params chaosParams, client *http.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if client == nil {
		var err error
		if client, err = defaultClient(); err != nil {
			return err
		}
	}
	page, err := dom.Load(ctx, client, params.URL)
	if err != nil {
		return err
	}
	ctl, err := controller.New(page,
		controller.WithHTTPClient(client),
		controller.WithAlerter(controller.AlerterFunc(func(string) {})))
	if err != nil {
		return err
	}

	cfg := chaos.DefaultConfig()
	cfg.MaxSteps = params.Steps
	cfg.Seed = params.Seed
	cfg.TimeBudget = params.Budget
	cfg.StepDelay = params.Delay
	cfg.EditRate = params.Edit
	if len(params.Weights) > 0 {
		cfg.KeyWeights = params.Weights
	}

	engine := chaos.New(ctl, cfg)
	runErr := engine.Run(ctx)
	run := engine.Snapshot(chaos.NewRunID(), params.URL)

	fmt.Fprintf(out, "seed=%d steps=%d states=%d transitions=%d violations=%d\n",
		run.Seed, run.StepsRun, run.UniqueStates, run.Transitions, run.Violations)
	for _, v := range run.ViolationList {
		fmt.Fprintf(out, "lost edit at step %d: %s want %q got %q\n", v.Step, v.Field, v.Want, v.Got)
	}
	fmt.Fprintf(out, "script: %s\n", strings.Join(run.Script, ","))

	if params.RunsDir != "" {
		if err := chaos.SaveRun(params.RunsDir, run); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved run %s\n", run.ID)
	}
	if runErr != nil {
		return runErr
	}
	if run.Violations > 0 {
		return fmt.Errorf("%d edits lost", run.Violations)
	}
	return nil
}
