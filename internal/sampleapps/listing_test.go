package sampleapps

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/racingmars/go3270"

	"github.com/jnnngs/5250Web/internal/host"
	"github.com/jnnngs/5250Web/internal/subfile"
)

func newTestListing(t *testing.T, pageSize int) (*listing, *host.Dataset) {
	t.Helper()
	ds, err := host.DefaultDataset()
	if err != nil {
		t.Fatalf("DefaultDataset: %v", err)
	}
	l, err := newListing(ds, pageSize)
	if err != nil {
		t.Fatalf("newListing: %v", err)
	}
	return l, ds
}

func fieldNamed(scr go3270.Screen, name string) (go3270.Field, bool) {
	for _, f := range scr {
		if f.Name == name {
			return f, true
		}
	}
	return go3270.Field{}, false
}

func TestListing_ScreenShowsOnePage(t *testing.T) {
	l, ds := newTestListing(t, 10)
	f := ds.Format()

	scr, values := l.screen()
	for rrn := 0; rrn < 10; rrn++ {
		if _, ok := fieldNamed(scr, subfile.FieldName(f.Record, f.OptionField, rrn)); !ok {
			t.Errorf("option field for record %d missing", rrn)
		}
	}
	if _, ok := fieldNamed(scr, subfile.FieldName(f.Record, f.OptionField, 10)); ok {
		t.Error("record 10 should be on the next page")
	}
	if _, ok := values["errormsg"]; !ok {
		t.Error("errormsg value missing")
	}
}

func TestListing_Rolls(t *testing.T) {
	l, ds := newTestListing(t, 10)

	if !l.handle(go3270.Response{AID: go3270.AIDPF8}) {
		t.Fatal("PF8 ended the session")
	}
	if got := l.store.Current.TopRrn; got != 10 {
		t.Fatalf("top after PF8 = %d, want 10", got)
	}

	l.handle(go3270.Response{AID: go3270.AIDPF7})
	if got := l.store.Current.TopRrn; got != 0 {
		t.Fatalf("top after PF7 = %d, want 0", got)
	}

	l.handle(go3270.Response{AID: go3270.AIDPF7})
	if l.store.Current.TopRrn != 0 || !strings.Contains(l.msg, "first record") {
		t.Errorf("PF7 at top: top=%d msg=%q", l.store.Current.TopRrn, l.msg)
	}

	for i := 0; i < 10; i++ {
		l.handle(go3270.Response{AID: go3270.AIDPF8})
	}
	if top := l.store.Current.TopRrn; top >= ds.Len() {
		t.Errorf("rolled past the end: top=%d len=%d", top, ds.Len())
	}
	if !strings.Contains(l.msg, "last record") {
		t.Errorf("msg = %q", l.msg)
	}
}

func TestListing_EnterProcessesOptions(t *testing.T) {
	l, ds := newTestListing(t, 10)
	f := ds.Format()
	before := ds.Len()

	l.handle(go3270.Response{AID: go3270.AIDEnter, Values: map[string]string{
		subfile.FieldName(f.Record, f.OptionField, 2): "4 ",
		"errormsg": "",
	}})
	if got := ds.Len(); got != before-1 {
		t.Errorf("Len = %d, want %d", got, before-1)
	}
	if !strings.Contains(l.msg, "deleted") {
		t.Errorf("msg = %q", l.msg)
	}
}

func TestListing_PF3Exits(t *testing.T) {
	l, _ := newTestListing(t, 10)
	if l.handle(go3270.Response{AID: go3270.AIDPF3}) {
		t.Error("PF3 should end the session")
	}
	if !l.handle(go3270.Response{AID: go3270.AIDClear}) {
		t.Error("Clear should redisplay")
	}
}

func TestServer_StartStop(t *testing.T) {
	srv, err := StartServer("127.0.0.1:0", 10, func() host.Host {
		ds, err := host.DefaultDataset()
		if err != nil {
			t.Error(err)
		}
		return ds
	})
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestServer_StopEndsOpenSessions(t *testing.T) {
	srv, err := StartServer("127.0.0.1:0", 10, func() host.Host {
		ds, err := host.DefaultDataset()
		if err != nil {
			t.Error(err)
		}
		return ds
	})
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The first telnet negotiation bytes show the session is running.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err != nil {
		t.Fatalf("read negotiation: %v", err)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- srv.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not wait for the open session to end")
	}

	srv.mu.Lock()
	open := len(srv.conns)
	srv.mu.Unlock()
	if open != 0 {
		t.Errorf("%d sessions still tracked after Stop", open)
	}
}

func TestStartServer_NeedsSource(t *testing.T) {
	if _, err := StartServer("127.0.0.1:0", 10, nil); err == nil {
		t.Fatal("expected error")
	}
}
