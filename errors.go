// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/kortschak/tone/led"
)

// ledError is an error with an associated LED flash sequence.
type ledError struct {
	error
	seq led.Sequence
}

// newLedError returns a ledError with a flash sequence defined by n, which
// should be program-unique. Uniqueness is not checked.
func newLedError(n byte, err error) ledError {
	return ledError{error: err, seq: led.Code(n)}
}

func (e ledError) ledSequence() led.Sequence { return e.seq }

func (e ledError) Unwrap() error { return e.error }

type ledSequencer interface {
	ledSequence() led.Sequence
}

// LED error codes.
const (
	errCodeRadio    = 1
	errCodeWatchdog = 2
	errCodeSPI      = 3
	errCodeTone     = 4
	errCodeClock    = 5
	errCodeADC      = 6

	errCodeLoop        = 8
	errCodeLoopTimeout = 9
)
