// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"machine"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/soypat/cyw43439"

	"github.com/kortschak/tone/control"
	"github.com/kortschak/tone/led"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Let serial port stabilise.
	time.Sleep(time.Second)

	f := firmware{
		dev: cyw43439.NewPicoWDevice(),

		speaker: &pwmOutput{
			pwm:  machine.PWM4,
			pins: [2]machine.Pin{machine.GPIO8, machine.GPIO9}, // P11, P12
		},
		joystick: joystick{adc: machine.ADC{Pin: machine.ADC0}}, // P31
		button:   button{pin: machine.GPIO15},                   // P20

		sda: machine.GPIO4, // P6
		scl: machine.GPIO5, // P7

		spi: machine.SPI0,
		cs:  machine.GPIO17, // P22
	}
	f.level.Set(slog.LevelInfo)
	f.log = slog.New(slog.NewTextHandler(
		io.MultiWriter(machine.Serial, &f.sw),
		&slog.HandlerOptions{
			Level: &f.level,
		},
	))
	f.log.LogAttrs(ctx, slog.LevelInfo, "initialise pico W device")

	defer func() {
		cancel()
		r := recover()
		switch r := r.(type) {
		case nil:
		case ledSequencer:
			f.log.LogAttrs(ctx, slog.LevelError, "flatline", slog.Any("err", r))
			for {
				machine.Watchdog.Update()
				err := led.Flash(f.dev, 0, r.ledSequence(), time.Sleep)
				if err != nil {
					f.log.LogAttrs(ctx, slog.LevelError, "flatline flash", slog.Any("err", err))
				}
			}
		default:
			f.log.LogAttrs(ctx, slog.LevelError, "flatline", slog.Any("err", r))
			for {
				machine.Watchdog.Update()
				err := led.Flash(f.dev, 0, led.Panic, time.Sleep)
				if err != nil {
					f.log.LogAttrs(ctx, slog.LevelError, "flatline flash", slog.Any("err", err))
				}
			}
		}
	}()

	err := f.init(ctx)
	if err != nil {
		panic(err)
	}

	if useHTTP {
		f.log.LogAttrs(ctx, slog.LevelInfo, "start diagnostics server")
		go func() {
			err := f.httpServer(ctx)
			if err != nil {
				f.log.LogAttrs(ctx, slog.LevelError, "diagnostics server", slog.Any("err", err))
			}
		}()
	}

	err = f.run(ctx)
	if !errors.Is(err, control.ErrSessionEnded) {
		panic(err)
	}

	f.log.LogAttrs(ctx, slog.LevelInfo, "halted")
	for {
		machine.Watchdog.Update()
		err := led.Flash(f.dev, 0, led.SessionEnded, time.Sleep)
		if err != nil {
			f.log.LogAttrs(ctx, slog.LevelError, "halt flash", slog.Any("err", err))
		}
	}
}

type switchedWriter struct {
	cw atomic.Pointer[io.Writer]
}

func (w *switchedWriter) Write(p []byte) (int, error) {
	cw := w.cw.Load()
	if cw == nil {
		return len(p), nil
	}
	n, err := (*cw).Write(p)
	if w, ok := (*cw).(http.Flusher); ok {
		w.Flush()
	}
	return n, err
}

func (w *switchedWriter) use(val io.Writer) {
	w.cw.Store(&val)
}

func (w *switchedWriter) close() {
	w.cw.Store(nil)
}
