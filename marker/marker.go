// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package marker emits oscilloscope-visible voltage levels from an
// LTC1661 dual DAC to mark the phases of a control loop.
package marker

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// Command is an LTC1661 control code.
type Command byte

// LTC1661 control codes.
const (
	NoOp         Command = 0x0
	LoadA        Command = 0x1
	LoadB        Command = 0x2
	Update       Command = 0x8
	LoadAUpdate  Command = 0x9
	LoadBUpdate  Command = 0xa
	Wake         Command = 0xd
	Sleep        Command = 0xe
	LoadBothWake Command = 0xf
)

// MaxValue is the largest DAC code.
const MaxValue = 1<<10 - 1

// Phase is a control loop phase.
type Phase int

const (
	Read Phase = iota
	Think
	Do
)

func (p Phase) String() string {
	switch p {
	case Read:
		return "read"
	case Think:
		return "think"
	case Do:
		return "do"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Levels are the DAC codes marking each phase.
var Levels = [...]uint16{
	Read:  300,
	Think: 700,
	Do:    MaxValue,
}

// Pin is a chip select line.
type Pin interface {
	High()
	Low()
}

// DAC is an LTC1661 on an SPI bus.
type DAC struct {
	bus drivers.SPI
	cs  Pin
	buf [2]byte
}

// New returns a DAC on bus selected by driving cs low. The chip select
// is deasserted.
func New(bus drivers.SPI, cs Pin) *DAC {
	cs.High()
	return &DAC{bus: bus, cs: cs}
}

// Set sends a 10-bit DAC code with the given command.
func (d *DAC) Set(cmd Command, value uint16) error {
	if value > MaxValue {
		return fmt.Errorf("dac value out of range: %d", value)
	}
	w := uint16(cmd)<<12 | value<<2
	d.buf = [2]byte{byte(w >> 8), byte(w)}
	d.cs.Low()
	err := d.bus.Tx(d.buf[:], nil)
	d.cs.High()
	return err
}

// Mark sets channel A to the level for phase p.
func (d *DAC) Mark(p Phase) error {
	if p < 0 || int(p) >= len(Levels) {
		return fmt.Errorf("invalid phase: %v", p)
	}
	return d.Set(LoadAUpdate, Levels[p])
}
