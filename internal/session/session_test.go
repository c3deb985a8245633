package session

import (
	"sync"
	"testing"
	"time"

	"github.com/jnnngs/5250Web/internal/host"
)

func newHost(t *testing.T) host.Host {
	t.Helper()
	d, err := host.DefaultDataset()
	if err != nil {
		t.Fatalf("default dataset: %v", err)
	}
	return d.Clone()
}

// TestManager_Concurrency verifies that the job manager handles concurrent
// creation, access and removal safely. Run with -race.
func TestManager_Concurrency(t *testing.T) {
	m, err := NewManager(100)
	if err != nil {
		t.Fatal(err)
	}
	h := newHost(t)
	var wg sync.WaitGroup
	numRoutines := 50

	wg.Add(numRoutines)
	for i := 0; i < numRoutines; i++ {
		go func() {
			defer wg.Done()
			j := m.CreateJob(h, View{Folded: true})
			got, ok := m.GetJob(j.Handle)
			if !ok || got != j {
				t.Errorf("GetJob failed for %s immediately after creation", j.Handle)
				return
			}
			time.Sleep(10 * time.Millisecond)
			got.SetView(View{Top: 10})
			if _, ok := m.GetJob(j.Handle); !ok {
				t.Errorf("GetJob failed for %s before removal", j.Handle)
				return
			}
			m.EndJob(j.Handle)
			if _, ok := m.GetJob(j.Handle); ok {
				t.Errorf("job %s still present after EndJob", j.Handle)
			}
			if !j.Closed() {
				t.Errorf("job %s not closed", j.Handle)
			}
		}()
	}
	wg.Wait()

	if m.Len() != 0 {
		t.Errorf("expected 0 jobs, got %d", m.Len())
	}
}

func TestManager_EvictsOldest(t *testing.T) {
	m, err := NewManager(2)
	if err != nil {
		t.Fatal(err)
	}
	h := newHost(t)
	first := m.CreateJob(h, View{})
	second := m.CreateJob(h, View{})
	m.GetJob(first.Handle)
	third := m.CreateJob(h, View{})

	if _, ok := m.GetJob(second.Handle); ok {
		t.Error("least recently used job should have been evicted")
	}
	if !second.Closed() {
		t.Error("evicted job not closed")
	}
	for _, j := range []*Job{first, third} {
		if _, ok := m.GetJob(j.Handle); !ok {
			t.Errorf("job %s missing", j.Handle)
		}
	}
	if got := m.Handles(); len(got) != 2 || got[1] != third.Handle {
		t.Errorf("Handles() = %v", got)
	}
}

func TestJob_HandlesAreUnique(t *testing.T) {
	m, _ := NewManager(10)
	h := newHost(t)
	a, b := m.CreateJob(h, View{}), m.CreateJob(h, View{})
	if a.Handle == b.Handle || len(a.Handle) != 36 {
		t.Errorf("bad handles %q %q", a.Handle, b.Handle)
	}
}

func TestJob_LastAccessAdvancesOnLookup(t *testing.T) {
	m, err := NewManager(2)
	if err != nil {
		t.Fatal(err)
	}
	j := m.CreateJob(newHost(t), View{})
	created := j.LastAccess()
	if created.IsZero() {
		t.Fatal("new job has no access time")
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := m.GetJob(j.Handle); !ok {
		t.Fatal("job not found")
	}
	if !j.LastAccess().After(created) {
		t.Errorf("LastAccess = %v, want after %v", j.LastAccess(), created)
	}
}
