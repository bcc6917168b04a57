//go:build !linux

package main

import (
	"context"
	"log/slog"
)

// watchKeys has no key source outside Linux.
func watchKeys(ctx context.Context, cfg InputConfig, onPress func(), log *slog.Logger) error {
	log.Info("key input not supported on this platform")
	return nil
}
