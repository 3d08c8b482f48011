package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/foreman/internal/cli"
	"github.com/antigravity-dev/foreman/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "foreman",
		Short:   "foreman - assemble, schedule and finalize maintenance jobs",
		Version: version.String(),
		Long: `foreman drives a scheduling backend: it assembles jobs from tasks,
equipments and teams, renders the open schedule, and finalizes tasks,
releasing teams once all their work is done.`,
	}

	rootCmd.PersistentFlags().String("config", "foreman.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().Bool("dev", false, "Log human-readable text instead of JSON")

	rootCmd.AddCommand(cli.LoginCmd())
	rootCmd.AddCommand(cli.LogoutCmd())
	rootCmd.AddCommand(cli.MountCmd())
	rootCmd.AddCommand(cli.ScheduleCmd())
	rootCmd.AddCommand(cli.FinalizeCmd())
	rootCmd.AddCommand(cli.TasksCmd())
	rootCmd.AddCommand(cli.TeamsCmd())
	rootCmd.AddCommand(cli.EquipmentsCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
