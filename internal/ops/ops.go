// Package ops defines the scheduling domain records exchanged with the
// backend and the validation applied at the API boundary.
package ops

import "fmt"

// Task statuses as the backend reports them.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// Task is a unit of work owned by the backend. Field spellings follow the
// backend schema (categorie, on_mount).
type Task struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	OnMount    bool   `json:"on_mount"`
	Team       *int64 `json:"team,omitempty"`
	Categorie  int64  `json:"categorie"`
	CreatedAt  string `json:"created_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// Team is a crew that executes tasks. is_ocupied is the backend's busy flag.
type Team struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Shift     int64  `json:"shift"`
	IsOcupied bool   `json:"is_ocupied"`
	OnMount   bool   `json:"on_mount"`
}

// Equipment is a machine or vehicle assignable to operations.
type Equipment struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Timespan  string `json:"timespan"`
	IsOcupied bool   `json:"is_ocupied"`
}

// OperationTask is the task reference nested in an operation payload. The
// backend optionally inlines the owning team.
type OperationTask struct {
	ID       int64 `json:"id"`
	TeamInfo *struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"team_info,omitempty"`
}

// Operation groups tasks and equipment under one time window.
type Operation struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Begin      string          `json:"begin"`
	End        string          `json:"end"`
	Finalized  bool            `json:"finalized"`
	Tasks      []OperationTask `json:"tasks"`
	Equipments []Equipment     `json:"equipments"`
}

// ContainsTask reports whether the operation references the given task id.
func (o Operation) ContainsTask(taskID int64) bool {
	for _, t := range o.Tasks {
		if t.ID == taskID {
			return true
		}
	}
	return false
}

// EquipmentNames returns the names of the operation's equipment, in payload order.
func (o Operation) EquipmentNames() []string {
	if len(o.Equipments) == 0 {
		return nil
	}
	names := make([]string, 0, len(o.Equipments))
	for _, e := range o.Equipments {
		names = append(names, e.Name)
	}
	return names
}

// TeamTask is the join record linking a team to a task. Begin/End, when set,
// override the owning operation's window for schedule rendering.
type TeamTask struct {
	ID    int64  `json:"id"`
	Team  int64  `json:"team"`
	Task  int64  `json:"task"`
	Begin string `json:"begin,omitempty"`
	End   string `json:"end,omitempty"`
}

// DecodeError reports a backend payload that failed boundary validation.
// Records carrying one are rejected rather than defaulted.
type DecodeError struct {
	Resource string
	ID       int64
	Field    string
}

func (e *DecodeError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("decode %s %d: missing or invalid %s", e.Resource, e.ID, e.Field)
	}
	return fmt.Sprintf("decode %s: missing or invalid %s", e.Resource, e.Field)
}

// Validate checks identity and status fields on a task payload.
func (t Task) Validate() error {
	if t.ID <= 0 {
		return &DecodeError{Resource: "task", Field: "id"}
	}
	switch t.Status {
	case StatusPending, StatusInProgress, StatusFinished:
	default:
		return &DecodeError{Resource: "task", ID: t.ID, Field: "status"}
	}
	return nil
}

// Validate checks identity fields on a team payload.
func (t Team) Validate() error {
	if t.ID <= 0 {
		return &DecodeError{Resource: "team", Field: "id"}
	}
	return nil
}

// Validate checks identity fields on an equipment payload.
func (e Equipment) Validate() error {
	if e.ID <= 0 {
		return &DecodeError{Resource: "equipment", Field: "id"}
	}
	return nil
}

// Validate checks identity fields on an operation payload and its nested
// task references.
func (o Operation) Validate() error {
	if o.ID <= 0 {
		return &DecodeError{Resource: "operation", Field: "id"}
	}
	for _, t := range o.Tasks {
		if t.ID <= 0 {
			return &DecodeError{Resource: "operation", ID: o.ID, Field: "tasks.id"}
		}
	}
	return nil
}

// Validate checks identity and linkage fields on a team-task join payload.
func (tt TeamTask) Validate() error {
	if tt.ID <= 0 {
		return &DecodeError{Resource: "team_task", Field: "id"}
	}
	if tt.Team <= 0 {
		return &DecodeError{Resource: "team_task", ID: tt.ID, Field: "team"}
	}
	if tt.Task <= 0 {
		return &DecodeError{Resource: "team_task", ID: tt.ID, Field: "task"}
	}
	return nil
}
