package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/antigravity-dev/foreman/internal/gantt"
)

const barWidth = 60

var teamPalette = []color.Attribute{
	color.FgCyan,
	color.FgYellow,
	color.FgGreen,
	color.FgMagenta,
	color.FgBlue,
	color.FgRed,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the open schedule as a terminal gantt chart",
	Long: `Fetch every open operation, resolve each task's assigned team and
time window, and render the rows grouped by team.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		asJSON, _ := cmd.Flags().GetBool("json")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		reconciler := gantt.NewReconciler(rt.client, rt.logger)
		rows, err := reconciler.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("build schedule: %w", err)
		}

		if asJSON {
			if rows == nil {
				rows = []gantt.Row{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		renderSchedule(os.Stdout, rows)
		return nil
	},
}

func init() {
	scheduleCmd.Flags().Bool("json", false, "Emit rows as JSON instead of a chart")
}

func ScheduleCmd() *cobra.Command {
	return scheduleCmd
}

// scheduleLayouts covers the timestamp shapes the backend emits.
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func parseWhen(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func renderSchedule(w io.Writer, rows []gantt.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No open operations")
		return
	}

	min, max, scalable := scheduleSpan(rows)

	byTeam := make(map[string][]gantt.Row)
	teams := make([]string, 0)
	for _, row := range rows {
		if _, seen := byTeam[row.Team]; !seen {
			teams = append(teams, row.Team)
		}
		byTeam[row.Team] = append(byTeam[row.Team], row)
	}
	sort.Strings(teams)

	for i, team := range teams {
		teamColor := color.New(teamPalette[i%len(teamPalette)])
		fmt.Fprintln(w, teamColor.Sprint(team))
		for _, row := range byTeam[team] {
			label := fmt.Sprintf("  %s / %s", row.Operation, row.Task)
			if len(row.AmbiguousOwnerIDs) > 0 {
				label += color.New(color.FgHiMagenta).Sprintf(" [claimed by operations %v]", row.AmbiguousOwnerIDs)
			}
			fmt.Fprintln(w, label)
			if scalable {
				fmt.Fprintf(w, "  %s  %s .. %s\n", teamColor.Sprint(renderBar(row, min, max)), row.Begin, row.End)
			} else {
				fmt.Fprintf(w, "  %s .. %s\n", row.Begin, row.End)
			}
			fmt.Fprintf(w, "  equipments: %s\n", strings.Join(row.Equipments, ", "))
		}
		fmt.Fprintln(w)
	}
}

// scheduleSpan finds the overall time window. Rows with unparsable
// timestamps disable bar rendering; the textual listing still works.
func scheduleSpan(rows []gantt.Row) (time.Time, time.Time, bool) {
	var min, max time.Time
	for _, row := range rows {
		begin, okB := parseWhen(row.Begin)
		end, okE := parseWhen(row.End)
		if !okB || !okE {
			return time.Time{}, time.Time{}, false
		}
		if min.IsZero() || begin.Before(min) {
			min = begin
		}
		if max.IsZero() || end.After(max) {
			max = end
		}
	}
	return min, max, max.After(min)
}

func renderBar(row gantt.Row, min, max time.Time) string {
	begin, _ := parseWhen(row.Begin)
	end, _ := parseWhen(row.End)

	span := max.Sub(min)
	start := int(float64(barWidth) * float64(begin.Sub(min)) / float64(span))
	stop := int(float64(barWidth) * float64(end.Sub(min)) / float64(span))
	if stop <= start {
		stop = start + 1
	}
	if stop > barWidth {
		stop = barWidth
	}

	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		if i >= start && i < stop {
			b.WriteByte('#')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
