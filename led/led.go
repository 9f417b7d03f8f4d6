// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package led encodes firmware status as on-board LED flash sequences.
package led

import (
	"math/bits"
	"time"
)

// Sequence is a sequence of LED states.
type Sequence []State

// State represents an LED state over a duration.
type State struct {
	On       bool
	Duration time.Duration
}

// Duration returns the total duration of the sequence.
func (s Sequence) Duration() time.Duration {
	var d time.Duration
	for _, st := range s {
		d += st.Duration
	}
	return d
}

var (
	// Heartbeat is the normal operation heartbeat.
	Heartbeat = Sequence{
		{On: true, Duration: 10 * time.Millisecond},
		{On: false, Duration: 990 * time.Millisecond},
	}
	// Panic is the uncaught panic termination heartbeat.
	Panic = Sequence{
		{On: true, Duration: 990 * time.Millisecond},
		{On: false, Duration: 10 * time.Millisecond},
	}
	// SessionEnded is shown after the session deadline has passed and
	// the tone has been silenced.
	SessionEnded = Sequence{
		{On: true, Duration: 100 * time.Millisecond},
		{On: false, Duration: 100 * time.Millisecond},
		{On: true, Duration: 100 * time.Millisecond},
		{On: false, Duration: 1700 * time.Millisecond},
	}
)

// Code returns a Sequence that encodes n as up to four groups of one to
// four flashes, one group for each significant two-bit nyblet of n in
// big-endian order. Zero is a single flash.
func Code(n byte) Sequence {
	if n == 0 {
		return Sequence{
			{On: true, Duration: 300 * time.Millisecond},
			{On: false, Duration: 2 * time.Second},
		}
	}
	skip := bits.LeadingZeros8(n) / 2
	n <<= skip * 2
	seq := make(Sequence, 0, 32)
	for range 4 - skip {
		flashes := n>>6 + 1
		for range flashes {
			seq = append(seq,
				State{On: true, Duration: 300 * time.Millisecond},
				State{On: false, Duration: 250 * time.Millisecond},
			)
		}
		seq[len(seq)-1].Duration = 500 * time.Millisecond
		n <<= 2
	}
	seq[len(seq)-1].Duration = 2 * time.Second
	return seq
}

// Setter sets a GPIO line driving an LED.
type Setter interface {
	GPIOSet(pin uint8, on bool) error
}

// Flash plays seq on LED line pin of dev, calling sleep for each state's
// duration.
func Flash(dev Setter, pin uint8, seq Sequence, sleep func(time.Duration)) error {
	for _, s := range seq {
		err := dev.GPIOSet(pin, s.On)
		if err != nil {
			return err
		}
		sleep(s.Duration)
	}
	return nil
}

// On returns whether seq, played on repeat, has the LED lit at offset t
// from its start.
func (s Sequence) On(t time.Duration) bool {
	d := s.Duration()
	if d <= 0 {
		return false
	}
	t %= d
	if t < 0 {
		t += d
	}
	for _, st := range s {
		if t < st.Duration {
			return st.On
		}
		t -= st.Duration
	}
	return false
}

// Blinker plays a repeating Sequence without blocking. Each call to
// Update sets the LED to the state for the given time, writing to the
// device only when the state changes.
type Blinker struct {
	dev   Setter
	pin   uint8
	seq   Sequence
	start time.Time

	valid bool
	on    bool
}

// NewBlinker returns a Blinker playing seq on LED line pin of dev from
// start.
func NewBlinker(dev Setter, pin uint8, seq Sequence, start time.Time) *Blinker {
	return &Blinker{dev: dev, pin: pin, seq: seq, start: start}
}

// Update sets the LED to the state of the sequence at now.
func (b *Blinker) Update(now time.Time) error {
	on := b.seq.On(now.Sub(b.start))
	if b.valid && on == b.on {
		return nil
	}
	err := b.dev.GPIOSet(b.pin, on)
	if err != nil {
		b.valid = false
		return err
	}
	b.valid = true
	b.on = on
	return nil
}
