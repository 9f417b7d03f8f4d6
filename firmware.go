// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"log/slog"
	"machine"
	"sync/atomic"
	"time"

	"github.com/soypat/cyw43439"
	"periph.io/x/conn/v3/physic"

	"github.com/kortschak/tone/control"
	"github.com/kortschak/tone/led"
	"github.com/kortschak/tone/marker"
	"github.com/kortschak/tone/rtc"
	"github.com/kortschak/tone/tone"
	"github.com/kortschak/tone/twowire"
)

// loopPeriod is the pause between control loop iterations.
const loopPeriod = 20 * time.Millisecond

type firmware struct {
	dev *cyw43439.Device

	speaker  *pwmOutput
	joystick joystick
	button   button

	sda, scl machine.Pin

	spi *machine.SPI
	cs  machine.Pin

	clock  *rtc.Device
	tone   *tone.Generator
	marker *marker.DAC
	loop   *control.Loop

	heartbeat *led.Blinker

	state atomic.Value // control.State

	log   *slog.Logger
	sw    switchedWriter
	level slog.LevelVar
}

func (f *firmware) init(ctx context.Context) error {
	f.log.LogAttrs(ctx, slog.LevelInfo, "configure pico W device")
	start := time.Now()
	err := f.dev.Init(cyw43439.DefaultWifiConfig())
	if err != nil {
		return newLedError(errCodeRadio, err)
	}
	f.log.LogAttrs(ctx, slog.LevelInfo, "cyw43439 initialised", slog.Duration("duration", time.Since(start)))

	f.log.LogAttrs(ctx, slog.LevelInfo, "set up watchdog")
	machine.Watchdog.Configure(machine.WatchdogConfig{
		TimeoutMillis: 10000,
	})
	err = machine.Watchdog.Start()
	if err != nil {
		return newLedError(errCodeWatchdog, err)
	}

	f.log.LogAttrs(ctx, slog.LevelInfo, "configure pins")
	f.button.pin.Configure(machine.PinConfig{
		Mode: machine.PinInputPullup,
	})
	f.cs.Configure(machine.PinConfig{
		Mode: machine.PinOutput,
	})

	f.log.LogAttrs(ctx, slog.LevelInfo, "configure marker dac")
	err = f.spi.Configure(machine.SPIConfig{
		Frequency: 6 * machine.MHz,
		SCK:       machine.SPI0_SCK_PIN, // GP18
		SDO:       machine.SPI0_SDO_PIN, // GP19
		SDI:       machine.SPI0_SDI_PIN, // GP16
		Mode:      0,
	})
	if err != nil {
		return newLedError(errCodeSPI, err)
	}
	f.marker = marker.New(f.spi, f.cs)

	f.log.LogAttrs(ctx, slog.LevelInfo, "configure tone generator")
	f.tone, err = tone.NewGenerator(f.speaker, tone.Config{
		Base:  physic.Frequency(machine.CPUFrequency()) * physic.Hertz,
		Width: 16,
	}, f.log)
	if err != nil {
		return newLedError(errCodeTone, err)
	}

	f.log.LogAttrs(ctx, slog.LevelInfo, "configure joystick adc")
	machine.InitADC()
	err = f.joystick.adc.Configure(machine.ADCConfig{})
	if err != nil {
		return newLedError(errCodeADC, err)
	}

	f.log.LogAttrs(ctx, slog.LevelInfo, "initialise clock")
	bus := twowire.NewSoft(openDrain{f.sda}, openDrain{f.scl}, twowire.Config{
		Speed: 100 * physic.KiloHertz,
	})
	f.clock = rtc.New(bus)
	err = f.clock.Initialize(rtc.Epoch)
	if err != nil {
		return newLedError(errCodeClock, err)
	}

	f.heartbeat = led.NewBlinker(f.dev, 0, led.Heartbeat, time.Now())
	f.loop = control.New(f.clock, f.button, f.joystick, f.tone, f.marker, control.Config{
		Period: loopPeriod,
		Report: func(s control.State) {
			machine.Watchdog.Update()
			f.state.Store(s)
			err := f.heartbeat.Update(time.Now())
			if err != nil {
				f.log.LogAttrs(ctx, slog.LevelWarn, "heartbeat", slog.Any("err", err))
			}
		},
	}, f.log)
	f.state.Store(f.loop.State())
	return nil
}

// run runs the control loop until the session ends. Faults are returned
// as ledErrors.
func (f *firmware) run(ctx context.Context) error {
	f.log.LogAttrs(ctx, slog.LevelInfo, "start control loop", slog.Duration("period", loopPeriod))
	err := f.loop.Run(ctx)
	switch {
	case errors.Is(err, control.ErrSessionEnded), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, twowire.ErrTimeout):
		return newLedError(errCodeLoopTimeout, err)
	default:
		return newLedError(errCodeLoop, err)
	}
}
