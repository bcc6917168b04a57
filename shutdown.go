package main

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/photonicat/flightboard/animator"
)

// shutdownAction runs the configured power-off command. With dry_run set it
// only logs what it would run.
func shutdownAction(cfg ShutdownConfig, log *slog.Logger) animator.ShutdownAction {
	return func(ctx context.Context) {
		cmdline := strings.Join(cfg.Command, " ")
		if cfg.DryRun {
			log.Info("dry run, not shutting down", "command", cmdline)
			return
		}
		if len(cfg.Command) == 0 {
			log.Error("no shutdown command configured")
			return
		}
		out, err := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...).CombinedOutput()
		if err != nil {
			log.Error("shutdown command failed", "command", cmdline, "error", err, "output", strings.TrimSpace(string(out)))
			return
		}
		log.Info("shutdown command issued", "command", cmdline)
	}
}
