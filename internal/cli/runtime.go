package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/foreman/internal/client"
	"github.com/antigravity-dev/foreman/internal/config"
	"github.com/antigravity-dev/foreman/internal/token"
)

// runtime bundles everything a command needs: loaded config, logger,
// token store, and a backend client. Commands call newRuntime in RunE
// and defer close.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	tokens *token.Store
	client *client.Client
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dev, _ := cmd.Flags().GetBool("dev")

	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = config.Default()
	}

	logger := configureLogger(cfg.General.LogLevel, dev)

	tokens, err := token.Open(config.ExpandHome(cfg.General.TokenDB))
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Backend.Timeout.Duration}
	c := client.New(httpClient, cfg.Backend.BaseURL, tokens, logger)

	return &runtime{cfg: cfg, logger: logger, tokens: tokens, client: c}, nil
}

func (r *runtime) close() {
	if r.tokens != nil {
		if err := r.tokens.Close(); err != nil {
			r.logger.Warn("failed to close token store", "error", err)
		}
	}
}

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// parseIDList parses a comma separated list of numeric ids, e.g. "1,2,3".
func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		if id <= 0 {
			return nil, fmt.Errorf("invalid id %d: must be positive", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
