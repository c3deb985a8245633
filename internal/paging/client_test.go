package paging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jnnngs/5250Web/internal/aid"
)

func newRecordsServer(t *testing.T, handler gin.HandlerFunc) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/records", handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RequestPage(t *testing.T) {
	type seenRequest struct {
		handle string
		req    Request
	}
	seen := make(chan seenRequest, 1)
	srv := newRecordsServer(t, func(c *gin.Context) {
		var got Request
		if err := c.ShouldBindJSON(&got); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		seen <- seenRequest{handle: c.Query(JobHandleParam), req: got}
		c.JSON(http.StatusOK, Envelope{
			RecordCount: 5,
			HTML:        "<tr></tr>",
			Request: EchoRequest{
				RecordName:      got.RecordName,
				From:            got.From,
				To:              got.To,
				RequestorAidKey: got.RequestorAidKey,
				Mode:            "ajax",
			},
		})
	})

	client := NewClient(srv.URL+"/records", "job-1", srv.Client())
	store := newStore(t, storeOpts{top: 0, pageSize: 5, folded: true})

	results, err := client.RequestPage(context.Background(), aid.PgDn, store)
	if err != nil {
		t.Fatalf("RequestPage: %v", err)
	}

	select {
	case res := <-results:
		if res.Err != nil {
			t.Fatalf("result error: %v", res.Err)
		}
		if res.Envelope.RecordCount != 5 || res.Envelope.Request.From != 5 || res.Envelope.Request.To != 10 {
			t.Errorf("unexpected envelope %+v", res.Envelope)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
	}

	sr := <-seen
	if sr.handle != "job-1" {
		t.Errorf("JobHandle = %q, want job-1", sr.handle)
	}
	if got := sr.req; got.Action != ActionGetRecords || got.From != 5 || got.To != 10 || got.RequestorAidKey != "PgDn" {
		t.Errorf("server saw %+v", got)
	}
}

func TestClient_RefusedRequestSendsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := newRecordsServer(t, func(c *gin.Context) {
		calls.Add(1)
		c.Status(http.StatusOK)
	})
	client := NewClient(srv.URL+"/records", "", srv.Client())
	store := newStore(t, storeOpts{top: 0, from: 0, pageSize: 10})

	results, err := client.RequestPage(context.Background(), aid.PgUp, store)
	if !errors.Is(err, ErrInvalidRoll) {
		t.Fatalf("err = %v, want ErrInvalidRoll", err)
	}
	if results != nil {
		t.Error("refused request must not return a channel")
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server called %d times", n)
	}
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
	}{
		{"non json", func(c *gin.Context) { c.String(http.StatusOK, "<html>login</html>") }},
		{"server error", func(c *gin.Context) { c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRecordsServer(t, tt.handler)
			client := NewClient(srv.URL+"/records", "", srv.Client())
			if _, err := client.Fetch(context.Background(), Request{Action: ActionGetRecords}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newRecordsServer(t, func(c *gin.Context) {
		select {
		case <-release:
		case <-c.Request.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(srv.URL+"/records", "", srv.Client())
	client.Timeout = 50 * time.Millisecond
	store := newStore(t, storeOpts{top: 0, pageSize: 5})

	results, err := client.RequestPage(context.Background(), aid.PgDn, store)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case res := <-results:
		if res.Err == nil {
			t.Fatal("expected timeout error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout not enforced")
	}
}

func TestClient_RequestURLKeepsExistingHandle(t *testing.T) {
	c := NewClient("http://example.com/records?JobHandle=abc", "other", nil)
	got, err := c.requestURL()
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://example.com/records?JobHandle=abc" {
		t.Errorf("requestURL = %q", got)
	}

	c = NewClient("http://example.com/records", "xyz", nil)
	got, _ = c.requestURL()
	if got != "http://example.com/records?JobHandle=xyz" {
		t.Errorf("requestURL = %q", got)
	}
}
