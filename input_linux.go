//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

const (
	keyDebounce     = 500 * time.Millisecond
	readRetry       = 100 * time.Millisecond
	maxReadFailures = 50
)

// findInputDevice returns the event device path whose name matches.
func findInputDevice(name string) (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if p.Name == name {
			return p.Path, nil
		}
	}
	return "", fmt.Errorf("no input device named %q", name)
}

// watchKeys calls onPress for every press of the power key, at most once per
// keyDebounce. A missing device is logged and ends the watcher without error.
func watchKeys(ctx context.Context, cfg InputConfig, onPress func(), log *slog.Logger) error {
	devPath, err := findInputDevice(cfg.DeviceName)
	if err != nil {
		log.Warn("key input disabled", "error", err)
		return nil
	}

	dev, err := evdev.Open(devPath)
	if err != nil {
		log.Warn("key input disabled", "path", devPath, "error", err)
		return nil
	}
	if err := dev.Grab(); err != nil {
		log.Warn("failed to grab input device", "path", devPath, "error", err)
	}

	// ReadOne blocks; closing the device unblocks it
	stop := context.AfterFunc(ctx, func() {
		_ = dev.Ungrab()
		_ = dev.Close()
	})
	defer stop()

	name, _ := dev.Name()
	log.Info("using input device", "path", devPath, "name", name)

	keys := keyReader{read: dev.ReadOne, now: time.Now, retry: readRetry}
	return keys.run(ctx, onPress, log)
}

// keyReader turns raw input events into debounced power key presses.
type keyReader struct {
	read  func() (*evdev.InputEvent, error)
	now   func() time.Time
	retry time.Duration
}

// run reads until ctx is done or the device is gone. A read error is logged
// once per run of failures; the device counts as gone on ENODEV or after
// maxReadFailures failures in a row.
func (k keyReader) run(ctx context.Context, onPress func(), log *slog.Logger) error {
	var lastPress time.Time
	failures := 0
	for {
		ev, err := k.read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if errors.Is(err, syscall.ENODEV) || failures >= maxReadFailures {
				log.Error("input device lost, key input stopped", "failures", failures, "error", err)
				return nil
			}
			if failures == 1 {
				log.Warn("input read error, retrying", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(k.retry):
			}
			continue
		}
		failures = 0

		if ev.Type != evdev.EV_KEY || ev.Code != evdev.KEY_POWER || ev.Value != 1 {
			continue
		}
		now := k.now()
		if !lastPress.IsZero() && now.Sub(lastPress) < keyDebounce {
			continue
		}
		lastPress = now
		log.Debug("power key pressed")
		onPress()
	}
}
