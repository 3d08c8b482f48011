// Package gantt builds flat schedule rows for all tasks belonging to open
// operations. It is a fetch-merge-project pipeline over the backend's source
// of truth, rebuilt from scratch on every invocation.
package gantt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/antigravity-dev/foreman/internal/ops"
)

// NoEquipment is the placeholder emitted for operations without equipment.
const NoEquipment = "No equipment"

// Backend is the slice of the REST client the reconciler needs.
type Backend interface {
	OpenOperations(ctx context.Context) ([]ops.Operation, error)
	TeamTasksByTask(ctx context.Context, taskID int64) ([]ops.TeamTask, error)
	Team(ctx context.Context, id int64) (ops.Team, error)
}

// Row is one render-ready timeline entry: a task under its operation,
// annotated with the effective team and time window. Rows are derived,
// read-only data; they are discarded and rebuilt on every reconcile.
type Row struct {
	Operation  string   `json:"operation"`
	Task       string   `json:"task"`
	Team       string   `json:"team"`
	Equipments []string `json:"equipments"`
	Begin      string   `json:"begin"`
	End        string   `json:"end"`

	// AmbiguousOwnerIDs lists every open operation claiming this row's task
	// when more than one does. The row still uses the first match; the
	// caller decides a tie-break rule.
	AmbiguousOwnerIDs []int64 `json:"ambiguous_owner_ids,omitempty"`
}

// Reconciler assembles schedule rows from one backend.
type Reconciler struct {
	backend Backend
	logger  *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(backend Backend, logger *slog.Logger) *Reconciler {
	return &Reconciler{backend: backend, logger: logger}
}

// Reconcile fetches open operations and merges their tasks, team
// assignments, and team names into one flat row list.
//
// Only the initial operations fetch can fail the run. Per-item failures are
// logged and absorbed: a task whose join lookup fails contributes no rows, a
// team whose name lookup fails gets a synthetic label. Tasks without any
// join record are silently dropped — partial results beat an empty view.
func (r *Reconciler) Reconcile(ctx context.Context) ([]Row, error) {
	operations, err := r.backend.OpenOperations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch open operations: %w", err)
	}
	if len(operations) == 0 {
		return nil, nil
	}

	taskIDs := referencedTasks(operations)
	joinsByTask := r.fetchJoins(ctx, taskIDs)
	teamNames := r.fetchTeamNames(ctx, distinctTeams(taskIDs, joinsByTask))

	var rows []Row
	for _, taskID := range taskIDs {
		for _, join := range joinsByTask[taskID] {
			owner, ambiguous := resolveOwner(operations, taskID)

			begin, end := join.Begin, join.End
			if begin == "" {
				begin = owner.Begin
			}
			if end == "" {
				end = owner.End
			}

			equipments := owner.EquipmentNames()
			if len(equipments) == 0 {
				equipments = []string{NoEquipment}
			}

			opName := owner.Name
			if opName == "" {
				opName = fmt.Sprintf("Operation #%d", owner.ID)
			}

			rows = append(rows, Row{
				Operation:         opName,
				Task:              fmt.Sprintf("Task #%d", taskID),
				Team:              teamNames[join.Team],
				Equipments:        equipments,
				Begin:             begin,
				End:               end,
				AmbiguousOwnerIDs: ambiguous,
			})
		}
	}

	r.logger.Debug("schedule reconciled",
		"operations", len(operations),
		"tasks", len(taskIDs),
		"rows", len(rows))
	return rows, nil
}

// referencedTasks returns the union of task ids across operations, in order
// of first appearance.
func referencedTasks(operations []ops.Operation) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, op := range operations {
		for _, t := range op.Tasks {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// fetchJoins looks up the team-task join records for every task
// concurrently. A failed lookup drops that task from the schedule.
func (r *Reconciler) fetchJoins(ctx context.Context, taskIDs []int64) map[int64][]ops.TeamTask {
	results := make([][]ops.TeamTask, len(taskIDs))
	var wg sync.WaitGroup
	for i, taskID := range taskIDs {
		wg.Add(1)
		go func(i int, taskID int64) {
			defer wg.Done()
			joins, err := r.backend.TeamTasksByTask(ctx, taskID)
			if err != nil {
				r.logger.Error("team_task lookup failed, skipping task", "task", taskID, "error", err)
				return
			}
			results[i] = joins
		}(i, taskID)
	}
	wg.Wait()

	joinsByTask := make(map[int64][]ops.TeamTask, len(taskIDs))
	for i, taskID := range taskIDs {
		if len(results[i]) > 0 {
			joinsByTask[taskID] = results[i]
		}
	}
	return joinsByTask
}

// distinctTeams returns the distinct team ids across all joins, in order of
// first appearance following task order.
func distinctTeams(taskIDs []int64, joinsByTask map[int64][]ops.TeamTask) []int64 {
	seen := make(map[int64]struct{})
	var teams []int64
	for _, taskID := range taskIDs {
		for _, join := range joinsByTask[taskID] {
			if _, ok := seen[join.Team]; ok {
				continue
			}
			seen[join.Team] = struct{}{}
			teams = append(teams, join.Team)
		}
	}
	return teams
}

// fetchTeamNames resolves display names concurrently, falling back to a
// synthetic label when a lookup fails.
func (r *Reconciler) fetchTeamNames(ctx context.Context, teamIDs []int64) map[int64]string {
	names := make([]string, len(teamIDs))
	var wg sync.WaitGroup
	for i, teamID := range teamIDs {
		wg.Add(1)
		go func(i int, teamID int64) {
			defer wg.Done()
			team, err := r.backend.Team(ctx, teamID)
			if err != nil || team.Name == "" {
				if err != nil {
					r.logger.Warn("team lookup failed, using fallback label", "team", teamID, "error", err)
				}
				names[i] = fmt.Sprintf("Team #%d", teamID)
				return
			}
			names[i] = team.Name
		}(i, teamID)
	}
	wg.Wait()

	byID := make(map[int64]string, len(teamIDs))
	for i, teamID := range teamIDs {
		byID[teamID] = names[i]
	}
	return byID
}

// resolveOwner finds the operation owning taskID. The first match wins; when
// several open operations claim the task, all their ids are returned so the
// caller can see the ambiguity.
func resolveOwner(operations []ops.Operation, taskID int64) (ops.Operation, []int64) {
	var owner ops.Operation
	var claimants []int64
	found := false
	for _, op := range operations {
		if !op.ContainsTask(taskID) {
			continue
		}
		if !found {
			owner = op
			found = true
		}
		claimants = append(claimants, op.ID)
	}
	if len(claimants) <= 1 {
		return owner, nil
	}
	return owner, claimants
}
