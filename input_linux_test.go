//go:build linux

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"syscall"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// scriptedReads replays results in order, then fails with ENODEV.
type scriptedReads struct {
	events []*evdev.InputEvent
	errs   []error
	calls  int
}

func (s *scriptedReads) read() (*evdev.InputEvent, error) {
	i := s.calls
	s.calls++
	if i >= len(s.events) {
		return nil, syscall.ENODEV
	}
	return s.events[i], s.errs[i]
}

func (s *scriptedReads) add(ev *evdev.InputEvent, err error) *scriptedReads {
	s.events = append(s.events, ev)
	s.errs = append(s.errs, err)
	return s
}

func powerDown() *evdev.InputEvent {
	return &evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.KEY_POWER, Value: 1}
}

func TestKeyReaderStopsWhenDeviceGone(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	reads := &scriptedReads{}
	keys := keyReader{read: reads.read, now: time.Now}

	done := make(chan error, 1)
	go func() { done <- keys.run(context.Background(), func() {}, log) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run kept retrying after ENODEV")
	}
	if reads.calls != 1 {
		t.Errorf("reads = %d, want 1", reads.calls)
	}
	if !strings.Contains(buf.String(), "input device lost") {
		t.Errorf("missing error log:\n%s", buf.String())
	}
}

func TestKeyReaderGivesUpAfterRepeatedFailures(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	reads := &scriptedReads{}
	for i := 0; i < maxReadFailures+5; i++ {
		reads.add(nil, errors.New("read /dev/input/event0: i/o error"))
	}
	keys := keyReader{read: reads.read, now: time.Now}

	if err := keys.run(context.Background(), func() {}, log); err != nil {
		t.Fatalf("run: %v", err)
	}
	if reads.calls != maxReadFailures {
		t.Errorf("reads = %d, want %d", reads.calls, maxReadFailures)
	}
	if n := strings.Count(buf.String(), "level=WARN"); n != 1 {
		t.Errorf("warnings = %d, want 1:\n%s", n, buf.String())
	}
}

func TestKeyReaderPresses(t *testing.T) {
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	ioErr := errors.New("i/o error")

	tests := []struct {
		name  string
		build func(r *scriptedReads)
		times []time.Duration
		want  int
	}{
		{
			name: "single press",
			build: func(r *scriptedReads) {
				r.add(powerDown(), nil)
			},
			times: []time.Duration{0},
			want:  1,
		},
		{
			name: "release and other keys ignored",
			build: func(r *scriptedReads) {
				r.add(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.KEY_POWER, Value: 0}, nil)
				r.add(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.KEY_A, Value: 1}, nil)
				r.add(&evdev.InputEvent{Type: evdev.EV_SYN}, nil)
			},
			want: 0,
		},
		{
			name: "bounce within debounce window",
			build: func(r *scriptedReads) {
				r.add(powerDown(), nil).add(powerDown(), nil).add(powerDown(), nil)
			},
			times: []time.Duration{0, 100 * time.Millisecond, 600 * time.Millisecond},
			want:  2,
		},
		{
			name: "transient errors then press",
			build: func(r *scriptedReads) {
				r.add(nil, ioErr).add(nil, ioErr).add(powerDown(), nil)
			},
			times: []time.Duration{0},
			want:  1,
		},
		{
			name: "success resets failure run",
			build: func(r *scriptedReads) {
				for i := 0; i < maxReadFailures-1; i++ {
					r.add(nil, ioErr)
				}
				r.add(powerDown(), nil)
				for i := 0; i < maxReadFailures-1; i++ {
					r.add(nil, ioErr)
				}
				r.add(powerDown(), nil)
			},
			times: []time.Duration{0, time.Second},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reads := &scriptedReads{}
			tt.build(reads)
			clock := 0
			keys := keyReader{
				read: reads.read,
				now: func() time.Time {
					d := tt.times[clock]
					clock++
					return base.Add(d)
				},
			}
			presses := 0
			if err := keys.run(context.Background(), func() { presses++ }, discardLogger()); err != nil {
				t.Fatalf("run: %v", err)
			}
			if presses != tt.want {
				t.Errorf("presses = %d, want %d", presses, tt.want)
			}
		})
	}
}

func TestKeyReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reads := &scriptedReads{}
	keys := keyReader{
		read: func() (*evdev.InputEvent, error) {
			cancel()
			return reads.read()
		},
		now: time.Now,
	}
	var buf bytes.Buffer
	if err := keys.run(ctx, func() {}, slog.New(slog.NewTextHandler(&buf, nil))); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("cancelled read logged as failure:\n%s", buf.String())
	}
}
