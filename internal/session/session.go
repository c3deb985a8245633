package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jnnngs/5250Web/internal/host"
)

// View is what a job remembers about the page it last served.
type View struct {
	Top     int
	Folded  bool
	Message string
}

// Job is one interactive display-file job, addressed by its JobHandle.
type Job struct {
	Handle  string
	Host    host.Host
	Created time.Time

	mu         sync.Mutex
	lastAccess time.Time
	view       View
	closed     bool
}

// View returns the job's view state.
func (j *Job) View() View {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.view
}

// SetView replaces the job's view state.
func (j *Job) SetView(v View) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.view = v
}

// LastAccess returns when the job was last looked up.
func (j *Job) LastAccess() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastAccess
}

// Closed reports whether the job has been ended or evicted.
func (j *Job) Closed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closed
}

func (j *Job) touch() {
	j.mu.Lock()
	j.lastAccess = time.Now()
	j.mu.Unlock()
}

func (j *Job) close() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
}

// Manager holds the live jobs. When full, the least recently used job is
// evicted and closed.
type Manager struct {
	jobs *lru.Cache[string, *Job]
}

// NewManager creates a manager holding at most capacity jobs.
func NewManager(capacity int) (*Manager, error) {
	if capacity <= 0 {
		capacity = 1
	}
	jobs, err := lru.NewWithEvict[string, *Job](capacity, func(handle string, j *Job) {
		j.close()
		log.Printf("session: job %s ended after %s idle", handle, time.Since(j.LastAccess()).Round(time.Second))
	})
	if err != nil {
		return nil, err
	}
	return &Manager{jobs: jobs}, nil
}

// GetJob retrieves a job by handle.
func (m *Manager) GetJob(handle string) (*Job, bool) {
	j, ok := m.jobs.Get(handle)
	if !ok {
		return nil, false
	}
	j.touch()
	return j, true
}

// CreateJob starts a job on h.
func (m *Manager) CreateJob(h host.Host, view View) *Job {
	now := time.Now()
	j := &Job{
		Handle:     uuid.NewString(),
		Host:       h,
		Created:    now,
		lastAccess: now,
		view:       view,
	}
	m.jobs.Add(j.Handle, j)
	return j
}

// EndJob removes and closes a job.
func (m *Manager) EndJob(handle string) {
	m.jobs.Remove(handle)
}

// Handles lists the live jobs, least recently used first.
func (m *Manager) Handles() []string {
	return m.jobs.Keys()
}

// Len returns the number of live jobs.
func (m *Manager) Len() int {
	return m.jobs.Len()
}
