// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"bytes"
	"errors"

	"periph.io/x/conn/v3/physic"

	"github.com/kortschak/tone/tone"
)

// Pulse is a simulated timer/counter pulse output.
type Pulse struct {
	Base     physic.Frequency
	Width    uint
	Period   uint32
	Prescale uint8
	Duty     uint32
	Enabled  bool

	// Writes counts period updates and Disables counts disable calls.
	Writes   int
	Disables int
}

func (p *Pulse) Configure(base physic.Frequency, width uint) error {
	p.Base, p.Width = base, width
	return nil
}

func (p *Pulse) SetPeriodAndScale(period uint32, prescale uint8) error {
	if p.Width < 32 && period > 1<<p.Width {
		return errors.New("period overflows counter")
	}
	p.Period, p.Prescale = period, prescale
	p.Writes++
	return nil
}

func (p *Pulse) SetDutyCycle(duty uint32) error {
	p.Duty = duty
	return nil
}

func (p *Pulse) Enable() error {
	p.Enabled = true
	return nil
}

func (p *Pulse) Disable() error {
	p.Enabled = false
	p.Disables++
	return nil
}

// Output returns the frequency of the pulse train in Hz, and zero when
// the output is disabled.
func (p *Pulse) Output() float64 {
	if !p.Enabled || p.Period == 0 {
		return 0
	}
	base := float64(p.Base) / float64(physic.Hertz)
	return base / float64(int(1)<<p.Prescale) / float64(p.Period)
}

var _ tone.PulseOutput = (*Pulse)(nil)

// Joystick is an analog input holding a fixed sample value.
type Joystick struct {
	Value int
	Err   error
}

func (j *Joystick) Sample() (int, error) { return j.Value, j.Err }

// Button is a digital input line.
type Button struct {
	Down bool
}

func (b *Button) IsAsserted() bool { return b.Down }

// SPI records transmitted frames.
type SPI struct {
	Frames [][]byte
}

func (s *SPI) Tx(w, r []byte) error {
	s.Frames = append(s.Frames, bytes.Clone(w))
	clear(r)
	return nil
}

func (s *SPI) Transfer(b byte) (byte, error) {
	return 0, s.Tx([]byte{b}, nil)
}

// Pin is a chip select line that does nothing.
type Pin struct{}

func (Pin) High() {}
func (Pin) Low()  {}
