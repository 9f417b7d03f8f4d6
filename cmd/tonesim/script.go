// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kortschak/tone/sim"
)

// event is a scripted input change.
type event struct {
	at    time.Duration
	joy   int // -1 if unchanged.
	press *bool
}

func (e event) apply(joy *sim.Joystick, btn *sim.Button) {
	if e.joy >= 0 {
		joy.Value = e.joy
	}
	if e.press != nil {
		btn.Down = *e.press
	}
}

// parseScript parses a comma-separated list of time:action events and
// returns them in time order.
func parseScript(s string) ([]event, error) {
	var events []event
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		at, action, ok := strings.Cut(f, ":")
		if !ok {
			return nil, fmt.Errorf("missing action in %q", f)
		}
		d, err := time.ParseDuration(at)
		if err != nil {
			return nil, fmt.Errorf("invalid time in %q: %w", f, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("negative time in %q", f)
		}
		e := event{at: d, joy: -1}
		switch action {
		case "press":
			e.press = ptr(true)
		case "release":
			e.press = ptr(false)
		default:
			v, ok := strings.CutPrefix(action, "joy=")
			if !ok {
				return nil, fmt.Errorf("unknown action in %q", f)
			}
			e.joy, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid joystick value in %q: %w", f, err)
			}
			if e.joy < 0 || 255 < e.joy {
				return nil, fmt.Errorf("joystick value out of range in %q", f)
			}
		}
		events = append(events, e)
	}
	slices.SortStableFunc(events, func(a, b event) int {
		return cmp.Compare(a.at, b.at)
	})
	return events, nil
}

func ptr[T any](v T) *T { return &v }
