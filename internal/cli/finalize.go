package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/antigravity-dev/foreman/internal/finalize"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize [task-id]",
	Short: "Mark a task as finished and release its team when idle",
	Long: `Set the task's status to finished, then check whether every other
task assigned to the same team is finished too. If so, the team is
marked available again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || taskID <= 0 {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		finalizer := finalize.New(rt.client, rt.logger)
		res, err := finalizer.Finalize(ctx, taskID)
		if err != nil {
			return fmt.Errorf("finalize task %d: %w", taskID, err)
		}

		fmt.Printf("%s Task %d finished\n", color.New(color.FgGreen).Sprint("✓"), res.TaskID)
		fmt.Println("  " + teamSummary(res))
		return nil
	},
}

// teamSummary describes what finalization did to the owning team. A known
// team whose task list could not be fetched is unverified, not unassigned.
func teamSummary(res finalize.Result) string {
	switch {
	case res.TeamReleased:
		return fmt.Sprintf("Team %d released", res.TeamID)
	case res.TeamChecked:
		return fmt.Sprintf("Team %d stays busy (%d task(s) still open)", res.TeamID, len(res.PendingTasks))
	case res.TeamID != 0:
		return fmt.Sprintf("Team %d state could not be verified; availability unchanged", res.TeamID)
	default:
		return "No team assignment found; team availability unchanged"
	}
}

func FinalizeCmd() *cobra.Command {
	return finalizeCmd
}
