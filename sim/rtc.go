// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim provides simulated peripherals for running the control loop
// off target.
package sim

import (
	"github.com/kortschak/tone/rtc"
	"github.com/kortschak/tone/twowire"
)

type busPhase int

const (
	idle busPhase = iota
	addressing
	pointing
	writing
	reading
	ignoring
)

// RTC is a DS1307 real-time clock seen through a byte-level two-wire bus
// controller. Time advances only when Advance is called. Day, date, month
// and year registers are not carried into.
type RTC struct {
	regs  [64]byte
	ptr   byte
	phase busPhase

	// Stuck makes every bus operation time out.
	Stuck bool

	// Transactions counts completed stop conditions.
	Transactions int
}

// NewRTC returns a simulated clock with its oscillator halted, as at
// first power up.
func NewRTC() *RTC {
	r := &RTC{}
	r.regs[0] = 0x80
	return r
}

// Advance moves the clock forward by sec seconds unless the oscillator is
// halted.
func (r *RTC) Advance(sec int64) {
	if r.regs[0]&0x80 != 0 {
		return
	}
	t := rtc.Seconds(r.regs[0], r.regs[1], r.regs[2]) + sec
	t %= 24 * 3600
	r.regs[0] = rtc.ToBCD(int(t % 60))
	r.regs[1] = rtc.ToBCD(int(t / 60 % 60))
	r.regs[2] = rtc.ToBCD(int(t / 3600))
}

// Register returns the value of register i.
func (r *RTC) Register(i int) byte { return r.regs[i] }

func (r *RTC) timeout(op string) error {
	return &twowire.TimeoutError{Op: op, Polls: 1}
}

func (r *RTC) Start() error {
	if r.Stuck {
		return r.timeout("start")
	}
	r.phase = addressing
	return nil
}

func (r *RTC) Restart() error {
	if r.Stuck {
		return r.timeout("restart")
	}
	r.phase = addressing
	return nil
}

func (r *RTC) Stop() error {
	if r.Stuck {
		return r.timeout("stop")
	}
	if r.phase != idle {
		r.Transactions++
	}
	r.phase = idle
	return nil
}

func (r *RTC) Transmit(b byte) (ack bool, err error) {
	if r.Stuck {
		return false, r.timeout("write")
	}
	switch r.phase {
	case addressing:
		if b>>1 != rtc.Address {
			r.phase = ignoring
			return false, nil
		}
		if b&1 != 0 {
			r.phase = reading
		} else {
			r.phase = pointing
		}
		return true, nil
	case pointing:
		r.ptr = b & 0x3f
		r.phase = writing
		return true, nil
	case writing:
		r.regs[r.ptr] = b
		r.ptr = (r.ptr + 1) & 0x3f
		return true, nil
	default:
		return false, nil
	}
}

func (r *RTC) Receive(ack bool) (byte, error) {
	if r.Stuck {
		return 0, r.timeout("read")
	}
	if r.phase != reading {
		return 0xff, nil
	}
	b := r.regs[r.ptr]
	r.ptr = (r.ptr + 1) & 0x3f
	if !ack {
		r.phase = ignoring
	}
	return b, nil
}

// PrimedRTC is an RTC behind a register-based controller that needs a
// dummy data register read to begin receiving.
type PrimedRTC struct {
	*RTC

	// Primes counts dummy reads.
	Primes int
}

// Prime returns the stale contents of the data register without
// clocking a byte from the device.
func (r *PrimedRTC) Prime() (byte, error) {
	if r.Stuck {
		return 0, r.timeout("prime")
	}
	r.Primes++
	return 0xa5, nil
}
