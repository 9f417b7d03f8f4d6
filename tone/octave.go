// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tone

// octaves is the ordered octave decision list. The first band whose
// threshold is exceeded wins.
var octaves = [...]struct {
	above  int64 // Hz
	octave int
}{
	{above: 4100, octave: 8},
	{above: 2070, octave: 7},
	{above: 1040, octave: 6},
	{above: 520, octave: 5},
	{above: 260, octave: 4},
	{above: 130, octave: 3},
	{above: 80, octave: 2},
}

// Octave returns the musical octave band containing f, or zero if f is at
// or below 80Hz.
func Octave(f Frequency) int {
	hz := f.Hertz()
	for _, b := range octaves {
		if hz > b.above {
			return b.octave
		}
	}
	return 0
}
