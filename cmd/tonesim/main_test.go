// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/kortschak/tone/tone"
)

func TestParseScript(t *testing.T) {
	events, err := parseScript("3s:press, 0s:joy=255 ,3.5s:release,,1s:joy=0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("unexpected number of events: %d", len(events))
	}
	for i, want := range []time.Duration{0, time.Second, 3 * time.Second, 3500 * time.Millisecond} {
		if events[i].at != want {
			t.Errorf("unexpected event %d time: got:%v want:%v", i, events[i].at, want)
		}
	}
	if events[0].joy != 255 || events[1].joy != 0 || events[2].joy != -1 {
		t.Errorf("unexpected joystick values: %d %d %d", events[0].joy, events[1].joy, events[2].joy)
	}
	if events[2].press == nil || !*events[2].press || events[3].press == nil || *events[3].press {
		t.Error("unexpected button events")
	}

	for _, bad := range []string{
		"press",
		"1x:press",
		"-1s:press",
		"1s:jump",
		"1s:joy=256",
		"1s:joy=up",
	} {
		_, err := parseScript(bad)
		if err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSimulateSession(t *testing.T) {
	events, err := parseScript("0s:joy=255,2s:joy=128,3s:press,3.5s:release")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := simulate(context.Background(), events, 20*time.Millisecond, 2*time.Minute, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.ended {
		t.Fatal("session did not end")
	}
	// The press at 3s is confirmed at clock second 3, so the session
	// ends when the clock reaches 63.
	if res.elapsed != 63*time.Second {
		t.Errorf("unexpected session length: got:%v want:63s", res.elapsed)
	}
	if res.iterations != 3150 {
		t.Errorf("unexpected number of iterations: got:%d want:3150", res.iterations)
	}
	if res.final != tone.MaxFrequency {
		t.Errorf("unexpected final frequency: got:%v want:%v", res.final, tone.MaxFrequency)
	}
	if want := 3 * int(res.iterations+1); res.markers != want {
		t.Errorf("unexpected number of markers: got:%d want:%d", res.markers, want)
	}
}

func TestSimulateWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	const rate = 44100
	w := newWavWriter(f, rate)
	res, err := simulate(context.Background(), nil, 20*time.Millisecond, time.Second, w, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ended {
		t.Error("unexpected session end")
	}
	err = w.Close()
	if err != nil {
		t.Fatalf("unexpected error closing wav: %v", err)
	}

	_, err = f.Seek(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("unexpected error decoding wav: %v", err)
	}
	if len(buf.Data) != rate {
		t.Errorf("unexpected number of samples: got:%d want:%d", len(buf.Data), rate)
	}

	// The default tone is 2500Hz, so a second of output has 5000 level
	// changes.
	var edges int
	for i := 1; i < len(buf.Data); i++ {
		if buf.Data[i] != buf.Data[i-1] {
			edges++
		}
	}
	if edges < 4990 || edges > 5010 {
		t.Errorf("unexpected number of level changes: got:%d want:~5000", edges)
	}
}
