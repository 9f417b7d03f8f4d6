// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package control

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/kortschak/tone/debounce"
	"github.com/kortschak/tone/marker"
	"github.com/kortschak/tone/rtc"
	"github.com/kortschak/tone/sim"
	"github.com/kortschak/tone/tone"
	"github.com/kortschak/tone/twowire"
)

// recorder is a Tone and Marker that records calls.
type recorder struct {
	calls []string
	freqs []tone.Frequency
}

func (r *recorder) SetFrequency(f tone.Frequency) error {
	r.calls = append(r.calls, "set")
	r.freqs = append(r.freqs, f)
	return nil
}

func (r *recorder) Stop() error {
	r.calls = append(r.calls, "stop")
	return nil
}

func (r *recorder) Mark(p marker.Phase) error {
	r.calls = append(r.calls, p.String())
	return nil
}

func newClock(t *testing.T) (*sim.RTC, *rtc.Device) {
	t.Helper()
	clock := sim.NewRTC()
	dev := rtc.New(&sim.PrimedRTC{RTC: clock})
	err := dev.Initialize(rtc.Epoch)
	if err != nil {
		t.Fatalf("failed to initialise clock: %v", err)
	}
	return clock, dev
}

func TestStepPhases(t *testing.T) {
	_, dev := newClock(t)
	rec := &recorder{}
	l := New(dev, &sim.Button{}, &sim.Joystick{Value: 255}, rec, rec, Config{}, nil)

	err := l.Step(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"read", "think", "do", "set"}
	if !slices.Equal(rec.calls, want) {
		t.Errorf("unexpected call sequence:\ngot: %v\nwant:%v", rec.calls, want)
	}
	s := l.State()
	if s.Octave != 7 {
		t.Errorf("unexpected octave: got:%d want:7", s.Octave)
	}
	wantFreq := DefaultFrequency + 5000*7*100
	if s.Prev != wantFreq || rec.freqs[0] != wantFreq {
		t.Errorf("unexpected frequency: got:%v played:%v want:%v", s.Prev, rec.freqs[0], wantFreq)
	}
	if s.Iteration != 1 {
		t.Errorf("unexpected iteration count: %d", s.Iteration)
	}
}

func TestJoystickSweep(t *testing.T) {
	_, dev := newClock(t)
	joy := &sim.Joystick{Value: 255}
	var out sim.Pulse
	gen, err := tone.NewGenerator(&out, tone.Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := New(dev, &sim.Button{}, joy, gen, nil, Config{}, nil)
	ctx := context.Background()

	for range 1000 {
		err := l.Step(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := l.State().Prev; got != tone.MaxFrequency {
		t.Errorf("frequency not clamped high: got:%v", got)
	}
	joy.Value = 0
	for range 1000 {
		err := l.Step(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := l.State().Prev; got != tone.MinFrequency {
		t.Errorf("frequency not clamped low: got:%v", got)
	}
	if !out.Enabled {
		t.Error("tone not playing")
	}
	if got := out.Output(); got < 99 || got > 101 {
		t.Errorf("unexpected output frequency: %f", got)
	}
}

func TestSessionTimeout(t *testing.T) {
	clock, dev := newClock(t)
	rec := &recorder{}
	var (
		reports  int
		released int
	)
	l := New(dev, &sim.Button{Down: true}, &sim.Joystick{Value: tone.Centre}, rec, nil, Config{
		Period: time.Second,
		Pause:  func(d time.Duration) { clock.Advance(int64(d / time.Second)) },
		Report: func(s State) {
			reports++
			if s.Button.State() == debounce.Released {
				released++
			}
		},
	}, nil)

	err := l.Run(context.Background())
	if !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected session end, got:%v", err)
	}

	// The press is confirmed on the fifth iteration at clock 4, so
	// the deadline is 64 and iterations 0 to 63 play a tone.
	if n := len(rec.calls); n != 65 {
		t.Fatalf("unexpected number of tone calls: got:%d want:65", n)
	}
	for i, c := range rec.calls[:64] {
		if c != "set" {
			t.Fatalf("unexpected call %d: %s", i, c)
		}
	}
	if rec.calls[64] != "stop" {
		t.Errorf("final call was not stop: %s", rec.calls[64])
	}
	if released != 4 {
		t.Errorf("unexpected number of released iterations: got:%d want:4", released)
	}
	if reports != 65 {
		t.Errorf("unexpected number of reports: got:%d want:65", reports)
	}
	s := l.State()
	if !s.Halted || s.Now != 64 {
		t.Errorf("unexpected final state: halted=%t now=%d", s.Halted, s.Now)
	}

	for range 3 {
		err = l.Step(context.Background())
		if !errors.Is(err, ErrSessionEnded) {
			t.Errorf("expected session end after halt, got:%v", err)
		}
	}
	if len(rec.calls) != 65 {
		t.Errorf("halted loop touched the tone: %v", rec.calls[65:])
	}
}

func TestPeripheralFault(t *testing.T) {
	clock, dev := newClock(t)
	rec := &recorder{}
	l := New(dev, &sim.Button{}, &sim.Joystick{Value: tone.Centre}, rec, nil, Config{}, nil)
	ctx := context.Background()

	err := l.Step(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Stuck = true
	err = l.Step(ctx)
	if !errors.Is(err, twowire.ErrTimeout) {
		t.Errorf("expected timeout, got:%v", err)
	}
	if errors.Is(err, ErrSessionEnded) {
		t.Error("fault reported as session end")
	}
	want := []string{"set", "stop"}
	if !slices.Equal(rec.calls, want) {
		t.Errorf("unexpected call sequence:\ngot: %v\nwant:%v", rec.calls, want)
	}

	joyErr := errors.New("conversion failed")
	clock.Stuck = false
	l = New(dev, &sim.Button{}, &sim.Joystick{Err: joyErr}, rec, nil, Config{}, nil)
	err = l.Step(ctx)
	if !errors.Is(err, joyErr) {
		t.Errorf("expected joystick error, got:%v", err)
	}
}

func TestRunCancel(t *testing.T) {
	_, dev := newClock(t)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	l := New(dev, &sim.Button{}, &sim.Joystick{Value: tone.Centre}, rec, nil, Config{
		Report: func(State) {
			n++
			if n == 10 {
				cancel()
			}
		},
	}, nil)
	err := l.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got:%v", err)
	}
	if n != 10 {
		t.Errorf("unexpected number of iterations: %d", n)
	}
}
