// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package control implements the single-threaded read, think, do loop
// that steers a tone with a joystick and ends the session a fixed time
// after the button is pressed.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kortschak/tone/debounce"
	"github.com/kortschak/tone/marker"
	"github.com/kortschak/tone/tone"
)

// ErrSessionEnded is returned by Step and Run once the session deadline
// has passed and the tone has been silenced. It is a terminal state, not
// a fault.
var ErrSessionEnded = errors.New("session ended")

// Clock returns the current clock reading in seconds.
type Clock interface {
	ReadSeconds() (int64, error)
}

// AnalogInput is a single-shot analog converter. Samples are scaled to
// [0, 255].
type AnalogInput interface {
	Sample() (int, error)
}

// DigitalInput is a digital input line.
type DigitalInput interface {
	IsAsserted() bool
}

// Tone plays or silences a tone.
type Tone interface {
	SetFrequency(tone.Frequency) error
	Stop() error
}

// Marker signals loop phase boundaries.
type Marker interface {
	Mark(marker.Phase) error
}

// DefaultFrequency is the tone played before the joystick is moved.
const DefaultFrequency = 2500 * tone.Hz

// Config holds the loop parameters.
type Config struct {
	// Initial is the starting tone frequency. Zero means
	// DefaultFrequency.
	Initial tone.Frequency

	// Period is the pause at the end of each iteration.
	Period time.Duration
	// Pause waits for the given duration. Nil means time.Sleep.
	Pause func(time.Duration)

	// Report, if not nil, is called with the loop state at the end of
	// each iteration.
	Report func(State)
}

// State is the state carried between loop iterations.
type State struct {
	Iteration uint64

	// Inputs set by read.
	Now    int64 // Clock seconds.
	Down   bool  // Raw button.
	Sample int   // Joystick.

	// Set by think.
	Octave int
	Next   tone.Frequency
	Button debounce.Machine

	// Prev is the frequency last played by do.
	Prev tone.Frequency

	Halted bool
}

// Loop is the control loop. It owns its peripherals; none of its methods
// may be called concurrently.
type Loop struct {
	clock    Clock
	button   DigitalInput
	joystick AnalogInput
	tone     Tone
	marker   Marker

	period time.Duration
	pause  func(time.Duration)
	report func(State)

	state State

	log *slog.Logger
}

// New returns a new control loop. The marker may be nil.
func New(clock Clock, button DigitalInput, joystick AnalogInput, out Tone, mark Marker, cfg Config, log *slog.Logger) *Loop {
	if cfg.Initial == 0 {
		cfg.Initial = DefaultFrequency
	}
	if cfg.Pause == nil {
		cfg.Pause = time.Sleep
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loop{
		clock:    clock,
		button:   button,
		joystick: joystick,
		tone:     out,
		marker:   mark,
		period:   cfg.Period,
		pause:    cfg.Pause,
		report:   cfg.Report,
		state:    State{Prev: cfg.Initial},
		log:      log,
	}
}

// State returns a copy of the current loop state.
func (l *Loop) State() State { return l.state }

// Run steps the loop until the session ends, ctx is cancelled or a
// peripheral fails.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err := l.Step(ctx)
		if err != nil {
			return err
		}
	}
}

// Step runs one read, think, do iteration. Once the session has ended
// Step returns ErrSessionEnded without accessing any peripheral. On a
// peripheral fault the tone is silenced if possible and the fault is
// returned.
func (l *Loop) Step(ctx context.Context) error {
	s := &l.state
	if s.Halted {
		return ErrSessionEnded
	}
	err := l.step(ctx, s)
	if err != nil && !errors.Is(err, ErrSessionEnded) {
		l.log.LogAttrs(ctx, slog.LevelError, "control loop fault", slog.Uint64("iteration", s.Iteration), slog.Any("err", err))
		if stopErr := l.tone.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}
	return err
}

func (l *Loop) step(ctx context.Context, s *State) error {
	err := l.read(s)
	if err != nil {
		return err
	}
	err = l.mark(marker.Think)
	if err != nil {
		return err
	}
	changed := think(s)
	if changed {
		l.logButton(ctx, s)
	}
	err = l.mark(marker.Do)
	if err != nil {
		return err
	}
	err = l.do(ctx, s)
	if l.report != nil {
		l.report(*s)
	}
	if err != nil {
		return err
	}
	s.Iteration++
	if l.period > 0 {
		l.pause(l.period)
	}
	return nil
}

// read samples the clock and the user inputs.
func (l *Loop) read(s *State) error {
	now, err := l.clock.ReadSeconds()
	if err != nil {
		return fmt.Errorf("read clock: %w", err)
	}
	s.Now = now
	err = l.mark(marker.Read)
	if err != nil {
		return err
	}
	s.Down = l.button.IsAsserted()
	s.Sample, err = l.joystick.Sample()
	if err != nil {
		return fmt.Errorf("read joystick: %w", err)
	}
	return nil
}

// think computes the next tone and debounces the button. It reports
// whether the debounced button state changed.
func think(s *State) (changed bool) {
	s.Octave = tone.Octave(s.Prev)
	s.Next = tone.Step(s.Prev, s.Sample)
	return s.Button.Update(s.Down, s.Now)
}

// do plays the next tone, or silences the output and halts the loop if
// the session deadline has been reached.
func (l *Loop) do(ctx context.Context, s *State) error {
	if s.Button.Expired(s.Now) {
		s.Halted = true
		_, at, deadline := s.Button.Armed()
		l.log.LogAttrs(ctx, slog.LevelWarn, "session ended",
			slog.Int64("now", s.Now),
			slog.Int64("armed_at", at),
			slog.Int64("deadline", deadline),
		)
		err := l.tone.Stop()
		if err != nil {
			return errors.Join(ErrSessionEnded, fmt.Errorf("stop tone: %w", err))
		}
		return ErrSessionEnded
	}
	l.log.LogAttrs(ctx, slog.LevelDebug, "iteration",
		slog.Uint64("n", s.Iteration),
		slog.Int64("now", s.Now),
		slog.Int("sample", s.Sample),
		slog.Int("octave", s.Octave),
		slog.Any("freq", s.Next),
		slog.Int("count", s.Button.Count()),
	)
	err := l.tone.SetFrequency(s.Next)
	if err != nil {
		return fmt.Errorf("set tone: %w", err)
	}
	s.Prev = s.Next
	return nil
}

func (l *Loop) mark(p marker.Phase) error {
	if l.marker == nil {
		return nil
	}
	err := l.marker.Mark(p)
	if err != nil {
		return fmt.Errorf("mark %v: %w", p, err)
	}
	return nil
}

func (l *Loop) logButton(ctx context.Context, s *State) {
	if s.Button.State() != debounce.Pressed {
		l.log.LogAttrs(ctx, slog.LevelInfo, "button released", slog.Int64("now", s.Now))
		return
	}
	_, at, deadline := s.Button.Armed()
	l.log.LogAttrs(ctx, slog.LevelInfo, "button pressed",
		slog.Int64("armed_at", at),
		slog.Int64("deadline", deadline),
	)
}
