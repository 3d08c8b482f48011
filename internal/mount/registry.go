package mount

import (
	"encoding/json"
	"fmt"
	"sync"
)

// OptimizationType selects which job registry a mount lands in. The label is
// passed through to the optimizer backend; foreman never interprets it.
type OptimizationType string

const (
	Classic OptimizationType = "classic"
	Quantum OptimizationType = "quantum"
)

// Valid reports whether t is a known optimization type.
func (t OptimizationType) Valid() bool {
	return t == Classic || t == Quantum
}

// Job is one locally-assembled group of task, equipment, and team ids meant
// to be scheduled together. Jobs are ephemeral; the authoritative effect of a
// mount is the on_mount flags already written to the backend.
type Job struct {
	TaskIDs      []int64
	EquipmentIDs []int64
	TeamIDs      []int64
}

// MarshalJSON emits the wire tuple [[taskIds],[equipmentIds],[teamIds]]
// expected by the optimizer payload.
func (j Job) MarshalJSON() ([]byte, error) {
	tuple := [3][]int64{
		emptyNotNil(j.TaskIDs),
		emptyNotNil(j.EquipmentIDs),
		emptyNotNil(j.TeamIDs),
	}
	return json.Marshal(tuple)
}

func emptyNotNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

// Registry tracks assembled jobs per optimization type. The classic and
// quantum registries are independent; switching type neither merges nor
// clears the other.
type Registry struct {
	mu   sync.Mutex
	jobs map[OptimizationType]map[string]Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[OptimizationType]map[string]Job)}
}

// Add registers job under the next free key for typ and returns that key.
// Keys are job_1..job_n counted per type.
func (r *Registry) Add(typ OptimizationType, job Job) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs[typ] == nil {
		r.jobs[typ] = make(map[string]Job)
	}
	key := fmt.Sprintf("job_%d", len(r.jobs[typ])+1)
	r.jobs[typ][key] = job
	return key
}

// Count returns the number of jobs registered for typ.
func (r *Registry) Count(typ OptimizationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs[typ])
}

// Snapshot returns a copy of the jobs registered for typ.
func (r *Registry) Snapshot(typ OptimizationType) map[string]Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Job, len(r.jobs[typ]))
	for key, job := range r.jobs[typ] {
		out[key] = job
	}
	return out
}

// Payload builds the optimizer payload {"jobs": {"job_1": [tuple], ...}} for
// typ. Each job maps to a single-tuple list, matching the optimizer contract.
func (r *Registry) Payload(typ OptimizationType) ([]byte, error) {
	snapshot := r.Snapshot(typ)
	jobs := make(map[string][]Job, len(snapshot))
	for key, job := range snapshot {
		jobs[key] = []Job{job}
	}
	return json.Marshal(map[string]any{"jobs": jobs})
}
