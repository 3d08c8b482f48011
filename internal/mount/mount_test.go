package mount

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
)

type fakeBackend struct {
	mu            sync.Mutex
	authenticated bool
	failTasks     map[int64]bool
	failTeams     map[int64]bool
	markedTasks   []int64
	markedTeams   []int64
}

func (f *fakeBackend) Authenticated() bool { return f.authenticated }

func (f *fakeBackend) MarkTaskMounting(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTasks[id] {
		return fmt.Errorf("task %d: boom", id)
	}
	f.markedTasks = append(f.markedTasks, id)
	return nil
}

func (f *fakeBackend) MarkTeamMounting(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTeams[id] {
		return fmt.Errorf("team %d: boom", id)
	}
	f.markedTeams = append(f.markedTeams, id)
	return nil
}

func (f *fakeBackend) marked() (tasks, teams []int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks = append([]int64(nil), f.markedTasks...)
	teams = append([]int64(nil), f.markedTeams...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i] < tasks[j] })
	sort.Slice(teams, func(i, j int) bool { return teams[i] < teams[j] })
	return tasks, teams
}

func newAssembler(backend *fakeBackend) *Assembler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAssembler(backend, NewRegistry(), logger)
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMountRegistersJobAndConsumesSelection(t *testing.T) {
	backend := &fakeBackend{authenticated: true}
	a := newAssembler(backend)

	sel := Selection{
		TaskIDs:      []int64{1, 2, 3},
		EquipmentIDs: []int64{9},
		TeamIDs:      []int64{4, 5},
	}
	res, err := a.Mount(context.Background(), Classic, sel)
	if err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if res.Status != StatusMounted {
		t.Fatalf("status = %q, want mounted", res.Status)
	}
	if res.JobKey != "job_1" {
		t.Errorf("job key = %q, want job_1", res.JobKey)
	}
	if !equalIDs(res.Job.TaskIDs, sel.TaskIDs) || !equalIDs(res.Job.TeamIDs, sel.TeamIDs) || !equalIDs(res.Job.EquipmentIDs, sel.EquipmentIDs) {
		t.Errorf("job tuple %+v does not match selection %+v", res.Job, sel)
	}
	if len(res.Remaining.TaskIDs) != 0 || len(res.Remaining.TeamIDs) != 0 {
		t.Errorf("remaining = %+v, want consumed tasks and teams", res.Remaining)
	}
	if !equalIDs(res.Remaining.EquipmentIDs, []int64{9}) {
		t.Errorf("equipment should stay selected, got %+v", res.Remaining.EquipmentIDs)
	}

	tasks, teams := backend.marked()
	if !equalIDs(tasks, []int64{1, 2, 3}) {
		t.Errorf("marked tasks = %v", tasks)
	}
	if !equalIDs(teams, []int64{4, 5}) {
		t.Errorf("marked teams = %v", teams)
	}
	if a.Registry().Count(Classic) != 1 {
		t.Errorf("classic registry count = %d, want 1", a.Registry().Count(Classic))
	}
}

func TestMountEmptyTaskSelectionIsNoOp(t *testing.T) {
	backend := &fakeBackend{authenticated: true}
	a := newAssembler(backend)

	res, err := a.Mount(context.Background(), Classic, Selection{TeamIDs: []int64{4}})
	if err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if res.Status != StatusSkipped {
		t.Fatalf("status = %q, want skipped", res.Status)
	}
	tasks, teams := backend.marked()
	if len(tasks) != 0 || len(teams) != 0 {
		t.Errorf("no updates should be issued, got tasks=%v teams=%v", tasks, teams)
	}
	if a.Registry().Count(Classic) != 0 {
		t.Error("no job should be registered")
	}
}

func TestMountWithoutTokenIsRejected(t *testing.T) {
	backend := &fakeBackend{authenticated: false}
	a := newAssembler(backend)

	_, err := a.Mount(context.Background(), Classic, Selection{TaskIDs: []int64{1}})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	tasks, _ := backend.marked()
	if len(tasks) != 0 {
		t.Error("no updates should be issued without a token")
	}
}

func TestMountTaskFailureGatesTeams(t *testing.T) {
	backend := &fakeBackend{
		authenticated: true,
		failTasks:     map[int64]bool{2: true},
	}
	a := newAssembler(backend)

	sel := Selection{TaskIDs: []int64{1, 2, 3}, TeamIDs: []int64{4}}
	res, err := a.Mount(context.Background(), Classic, sel)
	if err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if !equalIDs(res.FailedTaskIDs, []int64{2}) {
		t.Errorf("failed tasks = %v, want [2]", res.FailedTaskIDs)
	}
	_, teams := backend.marked()
	if len(teams) != 0 {
		t.Errorf("teams were updated after task failure: %v", teams)
	}
	if a.Registry().Count(Classic) != 0 {
		t.Error("no job should be registered on failure")
	}
	if !equalIDs(res.Remaining.TaskIDs, sel.TaskIDs) {
		t.Errorf("selection must stay intact on failure, got %+v", res.Remaining)
	}
}

func TestMountTeamFailureAbortsRegistration(t *testing.T) {
	backend := &fakeBackend{
		authenticated: true,
		failTeams:     map[int64]bool{5: true},
	}
	a := newAssembler(backend)

	res, err := a.Mount(context.Background(), Quantum, Selection{TaskIDs: []int64{1}, TeamIDs: []int64{4, 5}})
	if err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if !equalIDs(res.FailedTeamIDs, []int64{5}) {
		t.Errorf("failed teams = %v, want [5]", res.FailedTeamIDs)
	}
	// tasks were already flagged; there is no rollback
	tasks, _ := backend.marked()
	if !equalIDs(tasks, []int64{1}) {
		t.Errorf("tasks = %v, want [1] (already applied)", tasks)
	}
	if a.Registry().Count(Quantum) != 0 {
		t.Error("no job should be registered on failure")
	}
}

func TestMountZeroTeamsIsAccepted(t *testing.T) {
	backend := &fakeBackend{authenticated: true}
	a := newAssembler(backend)

	res, err := a.Mount(context.Background(), Classic, Selection{TaskIDs: []int64{7}})
	if err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if res.Status != StatusMounted {
		t.Fatalf("status = %q, want mounted", res.Status)
	}
	if len(res.Job.TeamIDs) != 0 {
		t.Errorf("job teams = %v, want empty", res.Job.TeamIDs)
	}
}

func TestRegistriesPerTypeAreIndependent(t *testing.T) {
	backend := &fakeBackend{authenticated: true}
	a := newAssembler(backend)

	r1, err := a.Mount(context.Background(), Classic, Selection{TaskIDs: []int64{1}})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := a.Mount(context.Background(), Quantum, Selection{TaskIDs: []int64{2}})
	if err != nil {
		t.Fatal(err)
	}
	r3, err := a.Mount(context.Background(), Classic, Selection{TaskIDs: []int64{3}})
	if err != nil {
		t.Fatal(err)
	}

	if r1.JobKey != "job_1" || r2.JobKey != "job_1" || r3.JobKey != "job_2" {
		t.Errorf("keys = %q %q %q, want job_1 job_1 job_2", r1.JobKey, r2.JobKey, r3.JobKey)
	}
	if a.Registry().Count(Classic) != 2 || a.Registry().Count(Quantum) != 1 {
		t.Errorf("counts classic=%d quantum=%d", a.Registry().Count(Classic), a.Registry().Count(Quantum))
	}
}

func TestRegistryPayloadShape(t *testing.T) {
	r := NewRegistry()
	r.Add(Classic, Job{TaskIDs: []int64{1, 2}, EquipmentIDs: []int64{3}, TeamIDs: []int64{4}})

	payload, err := r.Payload(Classic)
	if err != nil {
		t.Fatalf("Payload returned error: %v", err)
	}
	want := `{"jobs":{"job_1":[[[1,2],[3],[4]]]}}`
	if string(payload) != want {
		t.Errorf("payload = %s, want %s", payload, want)
	}
}

func TestJobMarshalEmptyListsNotNull(t *testing.T) {
	r := NewRegistry()
	r.Add(Quantum, Job{TaskIDs: []int64{1}})

	payload, err := r.Payload(Quantum)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"jobs":{"job_1":[[[1],[],[]]]}}`
	if string(payload) != want {
		t.Errorf("payload = %s, want %s", payload, want)
	}
}
