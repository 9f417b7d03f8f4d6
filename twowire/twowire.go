// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package twowire provides the byte-level two-wire serial bus abstraction
// used to talk to clock devices, and a bit-banged implementation over a
// pair of open-drain lines.
package twowire

import (
	"errors"
	"fmt"
)

// Bus is a two-wire serial bus controller. Each method blocks until the
// bus signals completion of the operation or the controller's bounded wait
// is exhausted.
type Bus interface {
	// Start issues a start condition.
	Start() error
	// Restart issues a repeated start condition without releasing the bus.
	Restart() error
	// Stop issues a stop condition and releases the bus.
	Stop() error
	// Transmit transmits b and reports whether the target acknowledged it.
	Transmit(b byte) (ack bool, err error)
	// Receive receives a byte, acknowledging it if ack is true. The last
	// byte of a read must not be acknowledged.
	Receive(ack bool) (byte, error)
}

// Primer is implemented by register-based controllers whose receive path
// is started by a read of the data register after a read address has been
// sent. The byte returned by Prime is meaningless and is discarded.
type Primer interface {
	Prime() (byte, error)
}

var (
	// ErrTimeout is matched by errors returned when a bounded wait on the
	// bus is exhausted.
	ErrTimeout = errors.New("two-wire bus timeout")

	// ErrNoAck is returned when a target does not acknowledge a byte.
	ErrNoAck = errors.New("no acknowledge")
)

// TimeoutError is returned when a poll of a bus condition exceeds its
// limit.
type TimeoutError struct {
	Op    string
	Polls int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: not ready after %d polls", e.Op, e.Polls)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Poll calls ready until it returns true, or until it has been called limit
// times. A limit of zero or less polls forever.
func Poll(op string, limit int, ready func() bool) error {
	for n := 0; limit <= 0 || n < limit; n++ {
		if ready() {
			return nil
		}
	}
	return &TimeoutError{Op: op, Polls: limit}
}

// Write writes each byte in p in order and returns an error wrapping
// ErrNoAck for the first byte that is not acknowledged.
func Write(bus Bus, p ...byte) error {
	for i, b := range p {
		ack, err := bus.Transmit(b)
		if err != nil {
			return fmt.Errorf("write byte %d: %w", i, err)
		}
		if !ack {
			return fmt.Errorf("write byte %d (%#02x): %w", i, b, ErrNoAck)
		}
	}
	return nil
}
