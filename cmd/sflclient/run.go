package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/spf13/cobra"

	"github.com/jnnngs/5250Web/internal/controller"
	"github.com/jnnngs/5250Web/internal/dom"
)

type runParams struct {
	URL     string
	Keys    []string
	Timeout time.Duration
	Dump    bool
}

func newRunCmd() *cobra.Command {
	var params runParams
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Load a page and play a script against it",
		Example: `  sflclient run --url http://localhost:8080/ --keys "PgDn,set:ORDREC.Qty[12]=5,PgUp,Enter"
  sflclient run --url http://localhost:8080/ --keys "dblclick:ORDCTL:3" --dump`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseScript(params.Keys)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), params, steps, nil)
		},
	}
	runCmd.Flags().StringVar(&params.URL, "url", "", "address of the display-file page")
	runCmd.Flags().StringSliceVar(&params.Keys, "keys", nil, "comma separated script steps")
	runCmd.Flags().DurationVar(&params.Timeout, "timeout", 30*time.Second, "time allowed for the whole script")
	runCmd.Flags().BoolVar(&params.Dump, "dump", false, "print the final page")
	_ = runCmd.MarkFlagRequired("url")
	return runCmd
}

// run loads the page and plays steps. A nil client gets a cookie-aware
// default one.
func run(ctx context.Context, out io.Writer, params runParams, steps []step, client *http.Client) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
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
	alerter := controller.AlerterFunc(func(message string) {
		fmt.Fprintf(out, "alert: %s\n", message)
	})
	ctl, err := controller.New(page, controller.WithHTTPClient(client), controller.WithAlerter(alerter))
	if err != nil {
		return err
	}
	report(out, "load", ctl)

	for _, s := range steps {
		if err := s.play(ctx, ctl); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		report(out, s.String(), ctl)
	}

	if params.Dump {
		markup, err := ctl.Page().HTML()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, markup)
	}
	return nil
}

// report prints one line per subfile with its window position.
func report(out io.Writer, label string, ctl *controller.Controller) {
	names := ctl.Subfiles()
	if len(names) == 0 {
		fmt.Fprintf(out, "%-24s (no subfile)\n", label)
		return
	}
	for _, name := range names {
		store, _ := ctl.Store(name)
		fmt.Fprintf(out, "%-24s %s top=%d edits=%d\n", label, name, store.Current.TopRrn, store.SflEdits.FieldCount())
	}
}

func defaultClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Jar: jar}, nil
}
