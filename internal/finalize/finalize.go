// Package finalize marks a task finished and releases its team once every
// task assigned to that team is finished.
package finalize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/antigravity-dev/foreman/internal/ops"
)

// Backend is the slice of the REST client the finalizer needs.
type Backend interface {
	FinishTask(ctx context.Context, id int64) error
	Task(ctx context.Context, id int64) (ops.Task, error)
	TeamTasksByTask(ctx context.Context, taskID int64) ([]ops.TeamTask, error)
	TeamTasksByTeam(ctx context.Context, teamID int64) ([]ops.TeamTask, error)
	ReleaseTeam(ctx context.Context, id int64) error
}

// Result reports what one finalization did. TeamChecked is false when the
// team's state could not be verified; the task itself is still finished.
type Result struct {
	TaskID       int64
	TeamID       int64
	TeamChecked  bool
	TeamReleased bool
	PendingTasks []int64
}

// Finalizer drives task finalization against one backend.
type Finalizer struct {
	backend Backend
	logger  *slog.Logger
}

// New constructs a Finalizer.
func New(backend Backend, logger *slog.Logger) *Finalizer {
	return &Finalizer{backend: backend, logger: logger}
}

// Finalize sets the task's status to finished, then checks whether the
// owning team has any unfinished tasks left and releases it when it does
// not. Failures after the status update degrade to an unverified team
// rather than an error; the finish itself is the required step.
func (f *Finalizer) Finalize(ctx context.Context, taskID int64) (Result, error) {
	if err := f.backend.FinishTask(ctx, taskID); err != nil {
		return Result{}, fmt.Errorf("finish task %d: %w", taskID, err)
	}
	res := Result{TaskID: taskID}

	joins, err := f.backend.TeamTasksByTask(ctx, taskID)
	if err != nil {
		f.logger.Warn("task finished but team lookup failed", "task", taskID, "error", err)
		return res, nil
	}
	if len(joins) == 0 {
		f.logger.Info("task finished, no team assigned", "task", taskID)
		return res, nil
	}

	// One team per task is assumed; the backend returns at most one join here.
	teamID := joins[0].Team
	res.TeamID = teamID

	teamJoins, err := f.backend.TeamTasksByTeam(ctx, teamID)
	if err != nil {
		f.logger.Warn("task finished but team task list failed", "task", taskID, "team", teamID, "error", err)
		return res, nil
	}

	res.TeamChecked = true
	for _, join := range teamJoins {
		task, err := f.backend.Task(ctx, join.Task)
		if err != nil {
			// Unverifiable counts as unfinished; the team stays busy.
			f.logger.Warn("task status check failed", "task", join.Task, "error", err)
			res.PendingTasks = append(res.PendingTasks, join.Task)
			continue
		}
		if task.Status != ops.StatusFinished {
			res.PendingTasks = append(res.PendingTasks, join.Task)
		}
	}

	if len(res.PendingTasks) > 0 {
		f.logger.Info("task finished, team still busy",
			"task", taskID, "team", teamID, "pending", len(res.PendingTasks))
		return res, nil
	}

	if err := f.backend.ReleaseTeam(ctx, teamID); err != nil {
		return res, fmt.Errorf("release team %d: %w", teamID, err)
	}
	res.TeamReleased = true
	f.logger.Info("task finished and team released", "task", taskID, "team", teamID)
	return res, nil
}
