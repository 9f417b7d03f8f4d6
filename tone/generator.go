// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tone

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"periph.io/x/conn/v3/physic"
)

// PulseOutput is a timer/counter peripheral producing a pulse train on a
// pair of concatenated channels.
type PulseOutput interface {
	// Configure prepares the peripheral for a counter clocked at base with
	// the given counter width in bits.
	Configure(base physic.Frequency, width uint) error
	// SetPeriodAndScale sets the counter period in prescaled clock ticks
	// and the prescaler index. The prescaled clock is base>>prescale.
	SetPeriodAndScale(period uint32, prescale uint8) error
	// SetDutyCycle sets the number of ticks of each period that the
	// output is active.
	SetDutyCycle(duty uint32) error
	Enable() error
	Disable() error
}

// prescales is the divisor for each prescaler index.
var prescales = [...]int64{1, 2, 4, 8, 16, 32, 64, 128}

// MaxPrescale is the largest prescaler index.
const MaxPrescale = len(prescales) - 1

// Config holds the parameters of a Generator.
type Config struct {
	// Base is the peripheral's input clock. Zero means 24MHz.
	Base physic.Frequency
	// Width is the counter width in bits. Zero means 16.
	Width uint
}

// Setting is a programmed pulse output setting.
type Setting struct {
	Period   uint32
	Prescale uint8
	Duty     uint32
}

// Generator plays square wave tones on a PulseOutput.
type Generator struct {
	out  PulseOutput
	base int64 // Hz
	max  int64

	playing bool
	last    Setting

	log *slog.Logger
}

// NewGenerator configures out and returns a Generator using it. The output
// is left disabled.
func NewGenerator(out PulseOutput, cfg Config, log *slog.Logger) (*Generator, error) {
	if cfg.Base == 0 {
		cfg.Base = 24 * physic.MegaHertz
	}
	if cfg.Width == 0 {
		cfg.Width = 16
	}
	if cfg.Width > 32 {
		return nil, fmt.Errorf("counter width too large: %d", cfg.Width)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	err := out.Configure(cfg.Base, cfg.Width)
	if err != nil {
		return nil, fmt.Errorf("configure pulse output: %w", err)
	}
	err = out.Disable()
	if err != nil {
		return nil, fmt.Errorf("disable pulse output: %w", err)
	}
	return &Generator{
		out:  out,
		base: int64(cfg.Base / physic.Hertz),
		max:  1 << cfg.Width,
		log:  log,
	}, nil
}

// Settings returns the counter period, prescaler index and duty needed to
// play f. The prescaler index is the smallest that lets the period fit the
// counter, or MaxPrescale with the period limited to the counter if none
// does. f must be at least 1Hz.
func (g *Generator) Settings(f Frequency) Setting {
	hz := f.Hertz()
	var p int
	period := g.base / hz
	for period > g.max && p < MaxPrescale {
		p++
		period = (g.base / prescales[p]) / hz
	}
	period = min(period, g.max)
	return Setting{
		Period:   uint32(period),
		Prescale: uint8(p),
		Duty:     uint32(period / 2),
	}
}

// SetFrequency plays a tone at f. Frequencies below 1Hz silence the
// output.
func (g *Generator) SetFrequency(f Frequency) error {
	if f.Hertz() <= 0 {
		return g.Stop()
	}
	s := g.Settings(f)
	if g.playing && s == g.last {
		return nil
	}
	g.log.LogAttrs(context.Background(), slog.LevelDebug-1, "set tone",
		slog.Any("freq", f),
		slog.Uint64("period", uint64(s.Period)),
		slog.Uint64("prescale", uint64(s.Prescale)),
	)
	err := g.out.SetPeriodAndScale(s.Period, s.Prescale)
	if err != nil {
		return fmt.Errorf("set period: %w", err)
	}
	err = g.out.SetDutyCycle(s.Duty)
	if err != nil {
		return fmt.Errorf("set duty: %w", err)
	}
	if !g.playing {
		err = g.out.Enable()
		if err != nil {
			return fmt.Errorf("enable pulse output: %w", err)
		}
	}
	g.playing = true
	g.last = s
	return nil
}

// Stop silences the output.
func (g *Generator) Stop() error {
	g.playing = false
	err := g.out.Disable()
	if err != nil {
		return fmt.Errorf("disable pulse output: %w", err)
	}
	return nil
}

// Playing returns whether the generator is producing a tone.
func (g *Generator) Playing() bool { return g.playing }
