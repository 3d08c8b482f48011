package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		status, _ := cmd.Flags().GetString("status")
		teamID, _ := cmd.Flags().GetInt64("team")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		tasks, err := rt.client.Tasks(ctx, status, teamID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tTEAM\tMOUNTING")
		for _, t := range tasks {
			team := "-"
			if t.Team != nil {
				team = fmt.Sprintf("%d", *t.Team)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, colorStatus(t.Status), team, yesNo(t.OnMount))
		}
		return tw.Flush()
	},
}

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List teams",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		all, _ := cmd.Flags().GetBool("all")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		teams, err := rt.client.Teams(ctx, !all)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		if len(teams) == 0 {
			fmt.Println("No teams found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSHIFT\tBUSY\tMOUNTING")
		for _, t := range teams {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", t.ID, t.Name, t.Shift, yesNo(t.IsOcupied), yesNo(t.OnMount))
		}
		return tw.Flush()
	},
}

var equipmentsCmd = &cobra.Command{
	Use:   "equipments",
	Short: "List equipments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		all, _ := cmd.Flags().GetBool("all")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		equipments, err := rt.client.Equipments(ctx, !all)
		if err != nil {
			return fmt.Errorf("list equipments: %w", err)
		}
		if len(equipments) == 0 {
			fmt.Println("No equipments found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTIMESPAN\tBUSY")
		for _, e := range equipments {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Name, e.Timespan, yesNo(e.IsOcupied))
		}
		return tw.Flush()
	},
}

func colorStatus(status string) string {
	switch status {
	case "finished":
		return color.New(color.FgGreen).Sprint(status)
	case "in_progress":
		return color.New(color.FgYellow).Sprint(status)
	default:
		return status
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func init() {
	tasksCmd.Flags().String("status", "", "Filter by status (pending, in_progress, finished)")
	tasksCmd.Flags().Int64("team", 0, "Filter by owning team id")
	teamsCmd.Flags().Bool("all", false, "Include busy teams")
	equipmentsCmd.Flags().Bool("all", false, "Include busy equipments")
}

func TasksCmd() *cobra.Command {
	return tasksCmd
}

func TeamsCmd() *cobra.Command {
	return teamsCmd
}

func EquipmentsCmd() *cobra.Command {
	return equipmentsCmd
}
