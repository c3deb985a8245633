// Package servertest runs the display-file server on the built-in sample
// for tests of its clients.
package servertest

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jnnngs/5250Web/internal/config"
	"github.com/jnnngs/5250Web/internal/host"
	"github.com/jnnngs/5250Web/internal/server"
	"github.com/jnnngs/5250Web/internal/session"
)

// Server is a running App.
type Server struct {
	*httptest.Server
	App *server.App
}

// New starts the App on the sample dataset with folded records. mutate may
// adjust the configuration first. The server is closed with the test.
func New(t testing.TB, mutate func(*config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Defaults()
	cfg.Subfile.Folded = true
	if mutate != nil {
		mutate(cfg)
	}
	base, err := host.DefaultDataset()
	if err != nil {
		t.Fatalf("sample dataset: %v", err)
	}
	app, err := server.NewApp(cfg, base)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv := &Server{Server: httptest.NewServer(app.Router()), App: app}
	t.Cleanup(srv.Close)
	return srv
}

// Job returns the only live job. It fails the test when there is not
// exactly one.
func (s *Server) Job(t testing.TB) *session.Job {
	t.Helper()
	handles := s.App.Jobs.Handles()
	if len(handles) != 1 {
		t.Fatalf("want one job, have %d", len(handles))
	}
	j, ok := s.App.Jobs.GetJob(handles[0])
	if !ok {
		t.Fatalf("job %s vanished", handles[0])
	}
	return j
}
