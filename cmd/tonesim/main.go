// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The tonesim command runs the tone control loop against simulated
// peripherals and writes the generated tone to a WAV file.
//
// Inputs are scripted as a comma-separated list of time:action events,
// where action is one of joy=<0-255>, press or release. For example
//
//	tonesim -script '0s:joy=255,2s:joy=128,3s:press,3.5s:release' -out tone.wav
//
// plays a rising tone for two seconds, holds it, and then arms the
// session timeout, ending the run sixty simulated seconds later.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kortschak/tone/control"
	"github.com/kortschak/tone/marker"
	"github.com/kortschak/tone/rtc"
	"github.com/kortschak/tone/sim"
	"github.com/kortschak/tone/tone"
)

func main() {
	os.Exit(Main())
}

func Main() int {
	script := flag.String("script", "0s:joy=255,2s:joy=128,3s:press,3.5s:release", "input event script")
	out := flag.String("out", "", "WAV output file (no audio if empty)")
	rate := flag.Int("rate", 44100, "WAV sample rate")
	period := flag.Duration("period", 20*time.Millisecond, "control loop period")
	limit := flag.Duration("limit", 2*time.Minute, "maximum simulated run time")
	level := flag.String("level", "info", "log level")
	flag.Parse()

	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(*level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		return 2
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	events, err := parseScript(*script)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid script: %v\n", err)
		return 2
	}
	if *period <= 0 {
		fmt.Fprintln(os.Stderr, "period must be positive")
		return 2
	}

	var w *wavWriter
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		w = newWavWriter(f, *rate)
	}

	res, err := simulate(context.Background(), events, *period, *limit, w, log)
	if w != nil {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		log.LogAttrs(context.Background(), slog.LevelError, "simulation failed", slog.Any("err", err))
		return 1
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "simulation complete",
		slog.Duration("elapsed", res.elapsed),
		slog.Uint64("iterations", res.iterations),
		slog.Bool("session_ended", res.ended),
		slog.Any("final_freq", res.final),
		slog.Int("markers", res.markers),
	)
	return 0
}

type result struct {
	elapsed    time.Duration
	iterations uint64
	ended      bool
	final      tone.Frequency
	markers    int
}

// simulate runs the control loop over simulated peripherals, advancing
// simulated time by period each iteration and applying script events as
// their time is reached. If w is not nil, the pulse output is rendered
// into it.
func simulate(ctx context.Context, events []event, period, limit time.Duration, w *wavWriter, log *slog.Logger) (result, error) {
	clock := sim.NewRTC()
	dev := rtc.New(&sim.PrimedRTC{RTC: clock})
	err := dev.Initialize(rtc.Epoch)
	if err != nil {
		return result{}, err
	}

	var (
		pulse sim.Pulse
		spi   sim.SPI
		btn   sim.Button
		joy   = sim.Joystick{Value: tone.Centre}
	)
	gen, err := tone.NewGenerator(&pulse, tone.Config{}, log)
	if err != nil {
		return result{}, err
	}
	dac := marker.New(&spi, sim.Pin{})

	var (
		now  time.Duration
		tick time.Duration // Time not yet carried into the clock.
	)
	apply := func() {
		for len(events) != 0 && events[0].at <= now {
			events[0].apply(&joy, &btn)
			events = events[1:]
		}
	}
	apply()
	var renderErr error
	loop := control.New(dev, &btn, &joy, gen, dac, control.Config{
		Period: period,
		Pause: func(d time.Duration) {
			if w != nil && renderErr == nil {
				renderErr = w.render(pulse.Output(), d)
			}
			now += d
			tick += d
			clock.Advance(int64(tick / time.Second))
			tick %= time.Second
			apply()
		},
	}, log)

	for now < limit {
		err = loop.Step(ctx)
		if err != nil {
			break
		}
		if renderErr != nil {
			err = renderErr
			break
		}
	}
	ended := errors.Is(err, control.ErrSessionEnded)
	if ended {
		err = nil
	}
	s := loop.State()
	return result{
		elapsed:    now,
		iterations: s.Iteration,
		ended:      ended,
		final:      s.Prev,
		markers:    len(spi.Frames),
	}, err
}
