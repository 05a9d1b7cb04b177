package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cortexmemory/cortex/internal/agentloop"
	"github.com/cortexmemory/cortex/internal/cliui"
	"github.com/cortexmemory/cortex/internal/lessonstore"
)

// runOnce resolves flags into a config, builds the session's dependencies,
// and drives one agentloop.Run to completion, printing the result.
func runOnce(ctx context.Context, f runFlags) error {
	if f.taskID == "" {
		return fmt.Errorf("cortex: --task-id is required")
	}
	taskText, err := resolveTaskText(f)
	if err != nil {
		return err
	}
	cfg := resolveConfig(f)
	if cfg.SessionID == 0 {
		cfg.SessionID = nextSessionID(cfg.SessionsRoot)
	}

	adapter, err := resolveAdapter(cfg.Domain, cfg.ErrorMode)
	if err != nil {
		return err
	}

	if cfg.Bootstrap {
		if _, err := lessonstore.MigrateLegacy(f.legacyPath, cfg.LessonStorePath); err != nil {
			slog.Warn("cortex: legacy migration failed, continuing without it", "error", err)
		}
	}

	deps, closeDeps, err := buildDeps(cfg, adapter)
	if err != nil {
		return err
	}
	defer closeDeps()

	dispCtx, stopDisp := context.WithCancel(ctx)
	defer stopDisp()
	disp := cliui.New(deps.Bus.NewTap())
	go disp.Run(dispCtx)

	metrics, err := agentloop.Run(ctx, deps, taskText, f.taskDir)
	if err != nil {
		return fmt.Errorf("cortex: session failed: %w", err)
	}
	cliui.RenderMetrics(metrics)
	return nil
}
