// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rtc implements a driver for DS1307-class real-time clocks
// attached to a two-wire serial bus.
package rtc

import (
	"fmt"

	"github.com/kortschak/tone/twowire"
)

// Address is the 7-bit bus address of the clock device.
const Address = 0x68

const (
	writeAddr = Address << 1
	readAddr  = Address<<1 | 1
)

// Register file of the device.
const (
	regSeconds = iota
	regMinutes
	regHours
	regDay
	regDate
	regMonth
	regYear
	regControl
)

const (
	secondsMask = 0x7f // Bit 7 is the clock halt flag.
	hoursMask   = 0x3f // Bit 6 selects 12 hour mode.
)

// Time is a wall clock setting written to the device. Fields hold
// binary values; they are converted to BCD on write.
type Time struct {
	Seconds int
	Minutes int
	Hours   int // 24 hour clock.
	Day     int // Day of week, 1-7.
	Date    int // Day of month, 1-31.
	Month   int // 1-12.
	Year    int // Years since 2000, 0-99.
}

// Epoch is the time the firmware sets the clock to at start up. Clock
// readings are seconds since this time.
var Epoch = Time{Day: 1, Date: 1, Month: 1}

// Device is a real-time clock on a two-wire bus.
type Device struct {
	bus twowire.Bus

	// Control is written to the control register by Initialize.
	// The zero value disables the square wave output.
	Control byte
}

// New returns a new clock device on the provided bus.
func New(bus twowire.Bus) *Device {
	return &Device{bus: bus}
}

// Initialize sets the device's clock to t and starts the oscillator.
func (d *Device) Initialize(t Time) error {
	err := d.bus.Start()
	if err != nil {
		return fmt.Errorf("rtc initialize: start: %w", err)
	}
	err = twowire.Write(d.bus,
		writeAddr,
		regSeconds,
		ToBCD(t.Seconds)&secondsMask,
		ToBCD(t.Minutes),
		ToBCD(t.Hours)&hoursMask,
		ToBCD(t.Day),
		ToBCD(t.Date),
		ToBCD(t.Month),
		ToBCD(t.Year),
		d.Control,
	)
	if err != nil {
		d.bus.Stop()
		return fmt.Errorf("rtc initialize: %w", err)
	}
	err = d.bus.Stop()
	if err != nil {
		return fmt.Errorf("rtc initialize: stop: %w", err)
	}
	return nil
}

// ReadSeconds returns the number of seconds held in the device's seconds,
// minutes and hours registers.
func (d *Device) ReadSeconds() (int64, error) {
	var regs [3]byte
	err := d.read(regSeconds, regs[:])
	if err != nil {
		return 0, fmt.Errorf("rtc read: %w", err)
	}
	return Seconds(regs[0], regs[1], regs[2]), nil
}

// read reads len(dst) registers starting from reg.
func (d *Device) read(reg byte, dst []byte) error {
	err := d.bus.Start()
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	err = twowire.Write(d.bus, writeAddr, reg)
	if err != nil {
		d.bus.Stop()
		return err
	}
	err = d.bus.Restart()
	if err != nil {
		d.bus.Stop()
		return fmt.Errorf("restart: %w", err)
	}
	err = twowire.Write(d.bus, readAddr)
	if err != nil {
		d.bus.Stop()
		return err
	}
	if p, ok := d.bus.(twowire.Primer); ok {
		_, err = p.Prime()
		if err != nil {
			d.bus.Stop()
			return fmt.Errorf("prime receive: %w", err)
		}
	}
	for i := range dst {
		dst[i], err = d.bus.Receive(i < len(dst)-1)
		if err != nil {
			d.bus.Stop()
			return fmt.Errorf("read register %d: %w", int(reg)+i, err)
		}
	}
	err = d.bus.Stop()
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// Seconds returns the linear number of seconds encoded by the BCD
// seconds, minutes and hours register values.
func Seconds(sec, mins, hour byte) int64 {
	sec &= secondsMask
	hour &= hoursMask
	return int64(sec>>4)*10 + int64(sec&0xf) +
		int64(mins>>4)*600 + int64(mins&0xf)*60 +
		int64(hour>>4)*36000 + int64(hour&0xf)*3600
}

// ToBCD returns v in binary-coded decimal. v must be in [0, 99].
func ToBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

// FromBCD returns the binary value of the BCD byte b.
func FromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0xf)
}
