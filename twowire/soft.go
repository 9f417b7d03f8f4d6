// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package twowire

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Line is one open-drain line of a two-wire bus.
type Line interface {
	// Release stops driving the line, letting the pull-up take it high.
	Release()
	// Drive pulls the line low.
	Drive()
	// Get returns the sensed level of the line.
	Get() bool
}

// Config holds the timing parameters of a bit-banged bus.
type Config struct {
	// Speed is the bus clock rate. Zero means 100kHz.
	Speed physic.Frequency

	// Polls is the number of times the clock line is sampled while
	// waiting for a target to release it (clock stretching), and the
	// data line while waiting for an idle bus. Zero means 10000.
	Polls int

	// Delay waits for the given duration. Nil means time.Sleep.
	Delay func(time.Duration)
}

// Soft is a two-wire bus controller driven by explicitly toggling the
// clock and data lines.
type Soft struct {
	sda, scl Line

	half  time.Duration
	polls int
	delay func(time.Duration)
}

// NewSoft returns a bus controller using the provided data and clock lines.
// Both lines are released.
func NewSoft(sda, scl Line, cfg Config) *Soft {
	if cfg.Speed == 0 {
		cfg.Speed = 100 * physic.KiloHertz
	}
	if cfg.Polls == 0 {
		cfg.Polls = 10000
	}
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}
	sda.Release()
	scl.Release()
	return &Soft{
		sda:   sda,
		scl:   scl,
		half:  cfg.Speed.Period() / 2,
		polls: cfg.Polls,
		delay: cfg.Delay,
	}
}

// String returns the bus name.
func (b *Soft) String() string { return "soft two-wire" }

// Start issues a start condition: the data line falls while the clock
// line is high.
func (b *Soft) Start() error {
	b.sda.Release()
	err := b.releaseClock()
	if err != nil {
		return err
	}
	err = Poll("bus idle", b.polls, b.sda.Get)
	if err != nil {
		return err
	}
	b.sda.Drive()
	b.wait()
	b.scl.Drive()
	b.wait()
	return nil
}

// Restart issues a repeated start condition.
func (b *Soft) Restart() error {
	b.sda.Release()
	b.wait()
	err := b.releaseClock()
	if err != nil {
		return err
	}
	b.wait()
	b.sda.Drive()
	b.wait()
	b.scl.Drive()
	b.wait()
	return nil
}

// Stop issues a stop condition: the data line rises while the clock line
// is high.
func (b *Soft) Stop() error {
	b.sda.Drive()
	b.wait()
	err := b.releaseClock()
	if err != nil {
		return err
	}
	b.wait()
	b.sda.Release()
	b.wait()
	return nil
}

// Transmit shifts c out most significant bit first and samples the
// acknowledge bit.
func (b *Soft) Transmit(c byte) (ack bool, err error) {
	for i := 7; i >= 0; i-- {
		err = b.writeBit(c&(1<<i) != 0)
		if err != nil {
			return false, err
		}
	}
	nack, err := b.readBit()
	return !nack, err
}

// Receive shifts a byte in most significant bit first and then sends an
// acknowledge if ack is true.
func (b *Soft) Receive(ack bool) (byte, error) {
	b.sda.Release()
	var c byte
	for range 8 {
		bit, err := b.readBit()
		if err != nil {
			return c, err
		}
		c <<= 1
		if bit {
			c |= 1
		}
	}
	err := b.writeBit(!ack)
	b.sda.Release()
	return c, err
}

func (b *Soft) writeBit(bit bool) error {
	if bit {
		b.sda.Release()
	} else {
		b.sda.Drive()
	}
	b.wait()
	err := b.releaseClock()
	if err != nil {
		return err
	}
	b.wait()
	b.scl.Drive()
	return nil
}

func (b *Soft) readBit() (bool, error) {
	b.sda.Release()
	b.wait()
	err := b.releaseClock()
	if err != nil {
		return false, err
	}
	bit := b.sda.Get()
	b.wait()
	b.scl.Drive()
	return bit, nil
}

// releaseClock releases the clock line and waits for any target that is
// stretching the clock to let it rise.
func (b *Soft) releaseClock() error {
	b.scl.Release()
	return Poll("clock stretch", b.polls, b.scl.Get)
}

func (b *Soft) wait() {
	if b.half > 0 {
		b.delay(b.half)
	}
}
