// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tone

// Centre is the joystick sample value at rest.
const Centre = 128

// bands is the joystick response curve for positive deflections. Negative
// deflections mirror it.
var bands = [...]struct {
	from int // Lower bound of the band, inclusive.
	step int
}{
	{from: 110, step: 5000},
	{from: 90, step: 2500},
	{from: 70, step: 1250},
	{from: 50, step: 625},
	{from: 30, step: 300},
}

// Increment returns the frequency step for the joystick sample and octave.
// The step grows non-linearly with deflection from Centre and linearly
// with octave. Deflections in [-30, 30) are a dead zone.
func Increment(sample, octave int) int {
	v := sample - Centre
	if v >= 0 {
		for _, b := range bands {
			if v >= b.from {
				return b.step * octave
			}
		}
		return 0
	}
	for _, b := range bands {
		// The negative bands are open at the lower end: [-50, -30) etc.
		if v < -b.from {
			return -b.step * octave
		}
	}
	return 0
}

// Step returns the next tone frequency given the previous frequency and a
// joystick sample. Increments are in units of 1/1000 Hz.
func Step(prev Frequency, sample int) Frequency {
	return Clamp(prev + Frequency(Increment(sample, Octave(prev)))*100)
}
