// Package mount assembles scheduling jobs from a user's selection and marks
// the consumed tasks and teams as mounting on the backend.
package mount

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ErrNotAuthenticated is returned when a mount is attempted without a
// stored access token.
var ErrNotAuthenticated = errors.New("mount: not authenticated")

// Backend is the slice of the REST client a mount needs.
type Backend interface {
	Authenticated() bool
	MarkTaskMounting(ctx context.Context, id int64) error
	MarkTeamMounting(ctx context.Context, id int64) error
}

// Selection is an explicit snapshot of the ids the user has picked. Mount
// takes it by value and returns the remaining selection; nothing here is
// shared mutable state.
type Selection struct {
	TaskIDs      []int64
	EquipmentIDs []int64
	TeamIDs      []int64
}

// Status classifies the outcome of one mount attempt.
type Status string

const (
	// StatusMounted means the job was registered and the selection consumed.
	StatusMounted Status = "mounted"
	// StatusSkipped means nothing was attempted (empty task selection).
	StatusSkipped Status = "skipped"
	// StatusFailed means at least one backend update failed; no job was
	// registered and the selection is untouched. Updates already applied
	// are not rolled back.
	StatusFailed Status = "failed"
)

// Result is the typed outcome of a mount, surfacing partial failures so
// callers can react programmatically instead of reading logs.
type Result struct {
	Status        Status
	JobKey        string
	Job           Job
	Remaining     Selection
	FailedTaskIDs []int64
	FailedTeamIDs []int64
}

// Assembler performs mounts against one backend and registry.
type Assembler struct {
	backend  Backend
	registry *Registry
	logger   *slog.Logger
}

// NewAssembler constructs an Assembler.
func NewAssembler(backend Backend, registry *Registry, logger *slog.Logger) *Assembler {
	return &Assembler{backend: backend, registry: registry, logger: logger}
}

// Registry exposes the job registry backing this assembler.
func (a *Assembler) Registry() *Registry {
	return a.registry
}

// Mount assembles one job from sel under the registry for typ.
//
// Tasks are flagged on_mount=true first, then teams; each stage is a
// concurrent fan-out gated all-or-nothing. A failed stage aborts the mount
// with StatusFailed and leaves the selection intact — flags already written
// stay written, and a retry simply re-issues them. On success the consumed
// task and team ids are subtracted from the returned selection; equipment
// ids stay selected.
func (a *Assembler) Mount(ctx context.Context, typ OptimizationType, sel Selection) (Result, error) {
	if len(sel.TaskIDs) == 0 {
		a.logger.Debug("mount skipped: empty task selection")
		return Result{Status: StatusSkipped, Remaining: sel}, nil
	}
	if !a.backend.Authenticated() {
		return Result{Status: StatusSkipped, Remaining: sel}, ErrNotAuthenticated
	}

	// Snapshot at call time; later selection changes must not leak in.
	taskIDs := append([]int64(nil), sel.TaskIDs...)
	equipmentIDs := append([]int64(nil), sel.EquipmentIDs...)
	teamIDs := append([]int64(nil), sel.TeamIDs...)

	if failed := a.fanOut(ctx, taskIDs, a.backend.MarkTaskMounting); len(failed) > 0 {
		a.logger.Error("mount aborted: task updates failed", "type", typ, "failed_tasks", failed)
		return Result{Status: StatusFailed, Remaining: sel, FailedTaskIDs: failed}, nil
	}

	if failed := a.fanOut(ctx, teamIDs, a.backend.MarkTeamMounting); len(failed) > 0 {
		a.logger.Error("mount aborted: team updates failed", "type", typ, "failed_teams", failed)
		return Result{Status: StatusFailed, Remaining: sel, FailedTeamIDs: failed}, nil
	}

	job := Job{TaskIDs: taskIDs, EquipmentIDs: equipmentIDs, TeamIDs: teamIDs}
	key := a.registry.Add(typ, job)

	remaining := Selection{
		TaskIDs:      subtract(sel.TaskIDs, taskIDs),
		EquipmentIDs: append([]int64(nil), sel.EquipmentIDs...),
		TeamIDs:      subtract(sel.TeamIDs, teamIDs),
	}

	a.logger.Info("job mounted",
		"type", typ,
		"job", key,
		"tasks", len(taskIDs),
		"equipments", len(equipmentIDs),
		"teams", len(teamIDs))

	return Result{Status: StatusMounted, JobKey: key, Job: job, Remaining: remaining}, nil
}

// fanOut issues update concurrently for every id and returns the ids whose
// update failed, sorted. A failure does not cancel in-flight siblings.
func (a *Assembler) fanOut(ctx context.Context, ids []int64, update func(context.Context, int64) error) []int64 {
	if len(ids) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []int64
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := update(ctx, id); err != nil {
				a.logger.Error("mount update failed", "id", id, "error", err)
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return failed
}

// subtract returns the members of ids not present in consumed, preserving order.
func subtract(ids, consumed []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[int64]struct{}, len(consumed))
	for _, id := range consumed {
		drop[id] = struct{}{}
	}
	var out []int64
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
