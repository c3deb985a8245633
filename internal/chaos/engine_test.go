package chaos

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jnnngs/5250Web/internal/controller"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/server/servertest"
)

func newController(t *testing.T, srv *servertest.Server) *controller.Controller {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	page, err := dom.Load(ctx, srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	ctl, err := controller.New(page,
		controller.WithHTTPClient(srv.Client()),
		controller.WithAlerter(controller.AlerterFunc(func(string) {})))
	require.NoError(t, err)
	return ctl
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Positive(t, cfg.MaxSteps)
	require.Positive(t, cfg.TimeBudget)
	require.Greater(t, cfg.KeyWeights["PgDn"], cfg.KeyWeights["Enter"])
}

func TestChooseKey(t *testing.T) {
	e := &Engine{cfg: Config{KeyWeights: map[string]int{"PgDn": 1, "PgUp": 0}}, rng: rand.New(rand.NewSource(1))}
	for i := 0; i < 20; i++ {
		require.Equal(t, "PgDn", e.chooseKey())
	}

	e.cfg.KeyWeights = nil
	require.Equal(t, "Enter", e.chooseKey())
}

func TestChooseKey_SeedReproducesSequence(t *testing.T) {
	weights := map[string]int{"PgDn": 3, "PgUp": 2, "PF11": 1, "Enter": 1}
	a := &Engine{cfg: Config{KeyWeights: weights}, rng: rand.New(rand.NewSource(7))}
	b := &Engine{cfg: Config{KeyWeights: weights}, rng: rand.New(rand.NewSource(7))}
	for i := 0; i < 50; i++ {
		require.Equal(t, a.chooseKey(), b.chooseKey())
	}
}

func TestGenerateValue_RespectsMaxFieldLength(t *testing.T) {
	e := &Engine{cfg: Config{MaxFieldLength: 3}, rng: rand.New(rand.NewSource(1))}
	for i := 0; i < 50; i++ {
		v := e.generateValue()
		require.NotEmpty(t, v)
		require.LessOrEqual(t, len(v), 3)
		require.Empty(t, strings.Trim(v, "0123456789"))
	}
}

func TestEngine_PagingKeepsEdits(t *testing.T) {
	srv := servertest.New(t, nil)
	e := New(newController(t, srv), Config{
		MaxSteps:       40,
		Seed:           42,
		EditRate:       0.8,
		MaxFieldLength: 4,
		KeyWeights:     map[string]int{"PgDn": 5, "PgUp": 4, "PF11": 2},
	})

	require.NoError(t, e.Run(context.Background()))

	st := e.Status()
	require.False(t, st.Active)
	require.Equal(t, 40, st.StepsRun)
	require.Empty(t, st.Error)
	require.Positive(t, st.Transitions)
	require.Empty(t, e.Violations())

	script := e.Script()
	require.NotEmpty(t, script)
	var edits int
	for _, s := range script {
		if strings.HasPrefix(s, "set:ORDREC.") {
			edits++
		}
	}
	require.Positive(t, edits)
}

func TestEngine_SubmitClearsPending(t *testing.T) {
	srv := servertest.New(t, nil)
	e := New(newController(t, srv), Config{
		MaxSteps:   3,
		Seed:       1,
		EditRate:   1,
		KeyWeights: map[string]int{"Enter": 1},
	})
	require.NoError(t, e.Run(context.Background()))
	require.Empty(t, e.pending)
	require.Empty(t, e.Violations())
	require.Equal(t, 3, e.Snapshot("id", srv.URL).KeyCounts["Enter"])
}

func TestEngine_StopsOnContext(t *testing.T) {
	srv := servertest.New(t, nil)
	e := New(newController(t, srv), Config{StepDelay: time.Hour, KeyWeights: map[string]int{"PgDn": 1}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return e.Status().StepsRun == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestEngine_ReportsTransportFailure(t *testing.T) {
	srv := servertest.New(t, nil)
	e := New(newController(t, srv), Config{MaxSteps: 5, KeyWeights: map[string]int{"Enter": 1}})
	srv.Close()

	err := e.Run(context.Background())
	require.Error(t, err)
	require.NotEmpty(t, e.Status().Error)
}

func TestSaveListLoadRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	older := &SavedRun{SavedRunMeta: SavedRunMeta{ID: "a", StartedAt: time.Now().Add(-time.Hour), StepsRun: 3}, Script: []string{"PgDn"}}
	newer := &SavedRun{SavedRunMeta: SavedRunMeta{ID: "b", StartedAt: time.Now(), Violations: 1}, KeyCounts: map[string]int{"PgUp": 2}}
	require.NoError(t, SaveRun(dir, older))
	require.NoError(t, SaveRun(dir, newer))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0600))

	metas, err := ListRuns(dir)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.Equal(t, "b", metas[0].ID)

	got, err := LoadRun(dir, "a")
	require.NoError(t, err)
	require.Equal(t, []string{"PgDn"}, got.Script)

	_, err = LoadRun(dir, "missing")
	require.ErrorContains(t, err, "not found")
	require.Error(t, SaveRun("", older))
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	require.NotEqual(t, a, b)
	require.Len(t, a, len("20060102-150405-")+8)
}
