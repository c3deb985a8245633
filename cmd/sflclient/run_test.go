package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jnnngs/5250Web/internal/chaos"
	"github.com/jnnngs/5250Web/internal/server/servertest"
)

func TestRun_PagesAndSubmitsEdits(t *testing.T) {
	srv := servertest.New(t, nil)
	steps, err := parseScript([]string{"PgDn", "set:ORDREC.Qty[12]=5", "uncheck:ORDREC.Rush[12]", "PgUp", "PgUp", "Enter"})
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(context.Background(), &out, runParams{URL: srv.URL + "/", Timeout: 10 * time.Second}, steps, srv.Client())
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "PgDn")
	require.Contains(t, text, "ORDCTL top=10")
	require.Contains(t, text, "alert:", "second PgUp at the top is refused")

	rec := srv.Job(t).Host.Records(12, 13)[0]
	require.Equal(t, "5", rec.Value("Qty"))
	require.False(t, rec.Checked("Rush"))
}

func TestRun_Dump(t *testing.T) {
	srv := servertest.New(t, nil)
	var out bytes.Buffer
	err := run(context.Background(), &out, runParams{URL: srv.URL + "/", Dump: true}, nil, srv.Client())
	require.NoError(t, err)
	require.Contains(t, out.String(), `data-sfl-ctl="ORDCTL"`)
}

func TestRun_StepErrorStops(t *testing.T) {
	srv := servertest.New(t, nil)
	steps, err := parseScript([]string{"set:ORDREC.Qty[0]=3", "set:NOPE[1]=x", "Enter"})
	require.NoError(t, err)

	err = run(context.Background(), &bytes.Buffer{}, runParams{URL: srv.URL + "/"}, steps, srv.Client())
	require.ErrorContains(t, err, "set:NOPE[1]=x")
	require.Equal(t, "21", srv.Job(t).Host.Records(0, 1)[0].Value("Qty"), "nothing was submitted")
}

func TestRunCmd_RequiresURL(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"run", "--keys", "PgDn"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.Error(t, cmd.Execute())
}

func TestRunChaos(t *testing.T) {
	srv := servertest.New(t, nil)
	dir := t.TempDir()
	var out bytes.Buffer
	err := runChaos(context.Background(), &out, chaosParams{
		URL:     srv.URL + "/",
		Steps:   15,
		Seed:    3,
		Budget:  30 * time.Second,
		Edit:    0.7,
		Weights: map[string]int{"PgDn": 3, "PgUp": 2},
		RunsDir: dir,
	}, srv.Client())
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "seed=3 steps=15")
	require.Contains(t, text, "violations=0")
	require.Contains(t, text, "saved run")

	runs, err := chaos.ListRuns(dir)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}
