// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"machine"

	"periph.io/x/conn/v3/physic"
)

// pwmGroup is an rp2040 PWM slice.
type pwmGroup interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	SetPeriod(period uint64) error
	Top() uint32
	Set(channel uint8, value uint32)
	Enable(enable bool)
}

// pwmOutput is a tone.PulseOutput driving both channels of a PWM slice
// together. The slice's own divider and top are derived from the
// requested prescaled period.
type pwmOutput struct {
	pwm   pwmGroup
	pins  [2]machine.Pin
	chans [2]uint8

	base   uint64 // Hz
	width  uint
	period uint32
}

func (p *pwmOutput) Configure(base physic.Frequency, width uint) error {
	p.base = uint64(base / physic.Hertz)
	p.width = width
	if p.base == 0 {
		return errors.New("zero base clock")
	}
	err := p.pwm.Configure(machine.PWMConfig{})
	if err != nil {
		return err
	}
	for i, pin := range p.pins {
		p.chans[i], err = p.pwm.Channel(pin)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *pwmOutput) SetPeriodAndScale(period uint32, prescale uint8) error {
	if period == 0 {
		return errors.New("zero period")
	}
	ns := (uint64(period) << prescale) * 1e9 / p.base
	err := p.pwm.SetPeriod(ns)
	if err != nil {
		return err
	}
	p.period = period
	return nil
}

func (p *pwmOutput) SetDutyCycle(duty uint32) error {
	if p.period == 0 {
		return errors.New("period not set")
	}
	v := uint32(uint64(duty) * (uint64(p.pwm.Top()) + 1) / uint64(p.period))
	for _, ch := range p.chans {
		p.pwm.Set(ch, v)
	}
	return nil
}

func (p *pwmOutput) Enable() error {
	p.pwm.Enable(true)
	return nil
}

func (p *pwmOutput) Disable() error {
	for _, ch := range p.chans {
		p.pwm.Set(ch, 0)
	}
	p.pwm.Enable(false)
	return nil
}

// joystick is an analog joystick axis on an ADC pin.
type joystick struct {
	adc machine.ADC
}

// Sample returns the top eight bits of a conversion.
func (j joystick) Sample() (int, error) {
	return int(j.adc.Get() >> 8), nil
}

// button is an active low push button with the internal pull-up enabled.
type button struct {
	pin machine.Pin
}

func (b button) IsAsserted() bool { return !b.pin.Get() }

// openDrain is a two-wire bus line emulated by switching a pin between
// pulled-up input and low output.
type openDrain struct {
	pin machine.Pin
}

func (l openDrain) Release() {
	l.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
}

func (l openDrain) Drive() {
	l.pin.Low()
	l.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l.pin.Low()
}

func (l openDrain) Get() bool { return l.pin.Get() }
