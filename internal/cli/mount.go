package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/antigravity-dev/foreman/internal/mount"
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Assemble a job from tasks, equipments and teams",
	Long: `Mark the selected tasks and teams as mounting on the backend and
register the assembled job under the chosen optimization type.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rawTasks, _ := cmd.Flags().GetString("tasks")
		rawEquipments, _ := cmd.Flags().GetString("equipments")
		rawTeams, _ := cmd.Flags().GetString("teams")
		rawType, _ := cmd.Flags().GetString("type")
		showPayload, _ := cmd.Flags().GetBool("show-payload")

		typ := mount.OptimizationType(rawType)
		if !typ.Valid() {
			return fmt.Errorf("invalid optimization type %q: must be %q or %q", rawType, mount.Classic, mount.Quantum)
		}

		taskIDs, err := parseIDList(rawTasks)
		if err != nil {
			return fmt.Errorf("parse --tasks: %w", err)
		}
		equipmentIDs, err := parseIDList(rawEquipments)
		if err != nil {
			return fmt.Errorf("parse --equipments: %w", err)
		}
		teamIDs, err := parseIDList(rawTeams)
		if err != nil {
			return fmt.Errorf("parse --teams: %w", err)
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		registry := mount.NewRegistry()
		assembler := mount.NewAssembler(rt.client, registry, rt.logger)

		sel := mount.Selection{TaskIDs: taskIDs, EquipmentIDs: equipmentIDs, TeamIDs: teamIDs}
		res, err := assembler.Mount(ctx, typ, sel)
		if err != nil {
			if errors.Is(err, mount.ErrNotAuthenticated) {
				return fmt.Errorf("not logged in: run `foreman login` first")
			}
			return fmt.Errorf("mount job: %w", err)
		}

		switch res.Status {
		case mount.StatusMounted:
			fmt.Printf("%s Mounted %s as %s (%d tasks, %d equipments, %d teams)\n",
				color.New(color.FgGreen).Sprint("✓"), typ, res.JobKey,
				len(res.Job.TaskIDs), len(res.Job.EquipmentIDs), len(res.Job.TeamIDs))
		case mount.StatusSkipped:
			fmt.Println("Nothing to mount: select at least one task")
			return nil
		case mount.StatusFailed:
			fmt.Printf("%s Mount failed", color.New(color.FgRed).Sprint("✗"))
			if len(res.FailedTaskIDs) > 0 {
				fmt.Printf(" (tasks %v could not be marked)", res.FailedTaskIDs)
			}
			if len(res.FailedTeamIDs) > 0 {
				fmt.Printf(" (teams %v could not be marked)", res.FailedTeamIDs)
			}
			fmt.Println()
			return fmt.Errorf("job was not registered")
		}

		if showPayload {
			payload, err := registry.Payload(typ)
			if err != nil {
				return fmt.Errorf("encode payload: %w", err)
			}
			fmt.Println(string(payload))
		}
		return nil
	},
}

func init() {
	mountCmd.Flags().String("tasks", "", "Comma separated task ids (required)")
	mountCmd.Flags().String("equipments", "", "Comma separated equipment ids")
	mountCmd.Flags().String("teams", "", "Comma separated team ids")
	mountCmd.Flags().String("type", string(mount.Classic), "Optimization type: classic or quantum")
	mountCmd.Flags().Bool("show-payload", false, "Print the optimizer payload after mounting")
}

func MountCmd() *cobra.Command {
	return mountCmd
}
