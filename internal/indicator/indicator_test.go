package indicator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
)

type call struct {
	color sensor.Color
	mode  sensor.LEDMode
}

type recordingSetter struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (r *recordingSetter) SetIndicator(_ context.Context, color sensor.Color, mode sensor.LEDMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{color, mode})
	return r.err
}

func (r *recordingSetter) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type countingLogger struct{ warns int }

func (l *countingLogger) Warn(string, ...any) { l.warns++ }

func TestSignal_Steady(t *testing.T) {
	tests := []struct {
		signal Signal
		want   call
	}{
		{Idle, call{sensor.ColorPurple, sensor.LEDOff}},
		{Scanning, call{sensor.ColorPurple, sensor.LEDFlashing}},
		{Enrolling, call{sensor.ColorPurple, sensor.LEDBreathing}},
	}

	for _, tt := range tests {
		t.Run(tt.signal.String(), func(t *testing.T) {
			setter := &recordingSetter{}
			New(setter, time.Millisecond).Signal(context.Background(), tt.signal)

			calls := setter.snapshot()
			if len(calls) != 1 || calls[0] != tt.want {
				t.Errorf("calls = %+v, want [%+v]", calls, tt.want)
			}
		})
	}
}

func TestSignal_TransientRevertsAfterDwell(t *testing.T) {
	tests := []struct {
		signal Signal
		color  sensor.Color
	}{
		{Success, sensor.ColorBlue},
		{Error, sensor.ColorRed},
	}

	for _, tt := range tests {
		t.Run(tt.signal.String(), func(t *testing.T) {
			setter := &recordingSetter{}
			ctrl := New(setter, 20*time.Millisecond)

			start := time.Now()
			ctrl.Signal(context.Background(), tt.signal)
			if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
				t.Errorf("Signal returned after %v, want at least the dwell", elapsed)
			}

			calls := setter.snapshot()
			want := []call{{tt.color, sensor.LEDOn}, {sensor.ColorPurple, sensor.LEDOff}}
			if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
				t.Errorf("calls = %+v, want %+v", calls, want)
			}
		})
	}
}

func TestSignal_CancelledDwellStillReverts(t *testing.T) {
	setter := &recordingSetter{}
	ctrl := New(setter, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctrl.Signal(ctx, Error)

	calls := setter.snapshot()
	if len(calls) != 2 || calls[1].mode != sensor.LEDOff {
		t.Errorf("calls = %+v, want error then off", calls)
	}
}

func TestSignal_FailureIsLogged(t *testing.T) {
	setter := &recordingSetter{err: errors.New("unsupported")}
	logger := &countingLogger{}
	ctrl := New(setter, time.Millisecond)
	ctrl.SetLogger(logger)

	ctrl.Signal(context.Background(), Scanning)

	if logger.warns != 1 {
		t.Errorf("warns = %d, want 1", logger.warns)
	}
	if ctrl.Last() != Scanning {
		t.Errorf("Last() = %v, want scanning", ctrl.Last())
	}
}

func TestNew_DefaultDwell(t *testing.T) {
	if ctrl := New(&recordingSetter{}, 0); ctrl.dwell != DefaultDwell {
		t.Errorf("dwell = %v, want %v", ctrl.dwell, DefaultDwell)
	}
}
