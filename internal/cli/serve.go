package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/foreman/internal/api"
	"github.com/antigravity-dev/foreman/internal/gantt"
	"github.com/antigravity-dev/foreman/internal/mount"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local read-only schedule API",
	Long: `Expose the reconciled schedule and the in-memory job registry over
HTTP. The server is read-only: it never writes to the backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		reconciler := gantt.NewReconciler(rt.client, rt.logger)
		registry := mount.NewRegistry()

		server, err := api.NewServer(rt.cfg, reconciler, registry, rt.logger)
		if err != nil {
			return fmt.Errorf("create api server: %w", err)
		}
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			rt.logger.Info("shutting down", "signal", sig.String())
			cancel()
		}()

		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	},
}

func ServeCmd() *cobra.Command {
	return serveCmd
}
