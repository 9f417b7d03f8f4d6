// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tone

import (
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestClamp(t *testing.T) {
	for _, test := range []struct {
		in, want Frequency
	}{
		{in: 0, want: MinFrequency},
		{in: 99 * Hz, want: MinFrequency},
		{in: MinFrequency, want: MinFrequency},
		{in: 2500 * Hz, want: 2500 * Hz},
		{in: MaxFrequency, want: MaxFrequency},
		{in: 6000 * Hz, want: MaxFrequency},
	} {
		if got := Clamp(test.in); got != test.want {
			t.Errorf("unexpected clamp of %d: got:%d want:%d", test.in, got, test.want)
		}
	}
}

func TestOctave(t *testing.T) {
	for _, test := range []struct {
		hz   Frequency
		want int
	}{
		{hz: 79, want: 0},
		{hz: 80, want: 0},
		{hz: 81, want: 2},
		{hz: 130, want: 2},
		{hz: 135, want: 3},
		{hz: 261, want: 4},
		{hz: 521, want: 5},
		{hz: 1041, want: 6},
		{hz: 2071, want: 7},
		{hz: 4100, want: 7},
		{hz: 4200, want: 8},
	} {
		if got := Octave(test.hz * Hz); got != test.want {
			t.Errorf("unexpected octave for %dHz: got:%d want:%d", test.hz, got, test.want)
		}
	}

	last := 0
	for f := MinFrequency; f <= MaxFrequency; f += Hz {
		o := Octave(f)
		if o < last {
			t.Fatalf("octave decreased at %v: %d < %d", f, o, last)
		}
		last = o
	}
}

func TestIncrement(t *testing.T) {
	for _, test := range []struct {
		sample, octave int
		want           int
	}{
		{sample: 128, octave: 2, want: 0},
		{sample: 128, octave: 8, want: 0},
		{sample: 255, octave: 4, want: 5000 * 4},
		{sample: 0, octave: 4, want: -5000 * 4},
		{sample: 128 + 110, octave: 1, want: 5000},
		{sample: 128 + 109, octave: 1, want: 2500},
		{sample: 128 + 90, octave: 1, want: 2500},
		{sample: 128 + 70, octave: 1, want: 1250},
		{sample: 128 + 50, octave: 1, want: 625},
		{sample: 128 + 30, octave: 1, want: 300},
		{sample: 128 + 29, octave: 1, want: 0},
		{sample: 128 - 30, octave: 1, want: 0},
		{sample: 128 - 31, octave: 1, want: -300},
		{sample: 128 - 50, octave: 1, want: -300},
		{sample: 128 - 51, octave: 1, want: -625},
		{sample: 128 - 90, octave: 1, want: -1250},
		{sample: 128 - 110, octave: 1, want: -2500},
		{sample: 128 - 111, octave: 1, want: -5000},
		{sample: 200, octave: 0, want: 0},
	} {
		if got := Increment(test.sample, test.octave); got != test.want {
			t.Errorf("unexpected increment for sample=%d octave=%d: got:%d want:%d",
				test.sample, test.octave, got, test.want)
		}
	}

	// Negative bands are open at their lower end, so sample s mirrors
	// 2*Centre-1-s.
	for s := Centre; s <= 255; s++ {
		up := Increment(s, 3)
		down := Increment(2*Centre-1-s, 3)
		if up != -down {
			t.Errorf("response curve not symmetric at %d: %d != -(%d)", s, up, down)
		}
	}
}

func TestStep(t *testing.T) {
	got := Step(MaxFrequency-Hz, 255)
	if got != MaxFrequency {
		t.Errorf("unexpected upper clamp: got:%d want:%d", got, MaxFrequency)
	}
	got = Step(MinFrequency+Hz, 0)
	if got != MinFrequency {
		t.Errorf("unexpected lower clamp: got:%d want:%d", got, MinFrequency)
	}
	got = Step(2500*Hz, 255)
	want := 2500*Hz + 5000*7*100
	if got != want {
		t.Errorf("unexpected step: got:%d want:%d", got, want)
	}
}

// pulse is a PulseOutput that records its settings.
type pulse struct {
	base     physic.Frequency
	width    uint
	period   uint32
	prescale uint8
	duty     uint32
	enabled  bool
	writes   int
}

func (p *pulse) Configure(base physic.Frequency, width uint) error {
	p.base, p.width = base, width
	return nil
}
func (p *pulse) SetPeriodAndScale(period uint32, prescale uint8) error {
	p.period, p.prescale = period, prescale
	p.writes++
	return nil
}
func (p *pulse) SetDutyCycle(duty uint32) error { p.duty = duty; return nil }
func (p *pulse) Enable() error                  { p.enabled = true; return nil }
func (p *pulse) Disable() error                 { p.enabled = false; return nil }

func TestSettings(t *testing.T) {
	var out pulse
	g, err := NewGenerator(&out, Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.base != 24*physic.MegaHertz || out.width != 16 {
		t.Errorf("unexpected configuration: base=%v width=%d", out.base, out.width)
	}
	const base = 24000000
	for hz := int64(100); hz <= 5000; hz++ {
		s := g.Settings(Frequency(hz) * Hz)
		if int(s.Prescale) > MaxPrescale {
			t.Fatalf("prescale out of range for %dHz: %d", hz, s.Prescale)
		}
		if s.Period > 65536 {
			t.Errorf("period out of range for %dHz: %d", hz, s.Period)
		}
		want := (base / prescales[s.Prescale]) / hz
		if int64(s.Period) != want {
			t.Errorf("unexpected period for %dHz: got:%d want:%d", hz, s.Period, want)
		}
		if s.Prescale > 0 && (base/prescales[s.Prescale-1])/hz <= 65536 {
			t.Errorf("prescale not minimal for %dHz: %d", hz, s.Prescale)
		}
		if s.Duty != s.Period/2 {
			t.Errorf("unexpected duty for %dHz: got:%d want:%d", hz, s.Duty, s.Period/2)
		}
	}

	for _, test := range []struct {
		hz   int64
		want Setting
	}{
		{hz: 5000, want: Setting{Period: 4800, Prescale: 0, Duty: 2400}},
		{hz: 2500, want: Setting{Period: 9600, Prescale: 0, Duty: 4800}},
		{hz: 100, want: Setting{Period: 60000, Prescale: 2, Duty: 30000}},
		{hz: 2, want: Setting{Period: 65536, Prescale: 7, Duty: 32768}},
	} {
		if got := g.Settings(Frequency(test.hz) * Hz); got != test.want {
			t.Errorf("unexpected settings for %dHz: got:%+v want:%+v", test.hz, got, test.want)
		}
	}
}

func TestGenerator(t *testing.T) {
	var out pulse
	g, err := NewGenerator(&out, Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.enabled {
		t.Error("output enabled before a tone was requested")
	}

	err = g.SetFrequency(2500 * Hz)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.enabled || out.period != 9600 || out.duty != 4800 {
		t.Errorf("unexpected output state: %+v", out)
	}
	err = g.SetFrequency(2500 * Hz)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.writes != 1 {
		t.Errorf("unchanged tone rewrote the peripheral: %d writes", out.writes)
	}

	err = g.Stop()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.enabled || g.Playing() {
		t.Error("output still enabled after stop")
	}

	err = g.SetFrequency(0)
	if err != nil {
		t.Fatalf("unexpected error for zero frequency: %v", err)
	}
	if out.enabled || out.writes != 1 {
		t.Errorf("zero frequency programmed the output: %+v", out)
	}

	err = g.SetFrequency(2500 * Hz)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.enabled {
		t.Error("output not re-enabled after stop")
	}
}

func TestGeneratorWidth(t *testing.T) {
	var out pulse
	_, err := NewGenerator(&out, Config{Width: 40}, nil)
	if err == nil {
		t.Error("expected error for oversized counter")
	}
}
