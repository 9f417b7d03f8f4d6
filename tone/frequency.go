// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tone converts joystick deflections into tone frequencies and
// drives a pulse output peripheral to play them as square waves.
package tone

import "strconv"

// Frequency is a tone frequency in units of 1/100000 Hz.
type Frequency int64

const (
	// Hz is one hertz.
	Hz Frequency = 100000

	// MinFrequency and MaxFrequency are the bounds of playable tones.
	MinFrequency = 100 * Hz
	MaxFrequency = 5000 * Hz
)

// Clamp returns f limited to [MinFrequency, MaxFrequency].
func Clamp(f Frequency) Frequency {
	switch {
	case f >= MaxFrequency:
		return MaxFrequency
	case f <= MinFrequency:
		return MinFrequency
	default:
		return f
	}
}

// Hertz returns the integral number of hertz in f.
func (f Frequency) Hertz() int64 { return int64(f / Hz) }

func (f Frequency) String() string {
	return strconv.FormatInt(f.Hertz(), 10) + "Hz"
}
