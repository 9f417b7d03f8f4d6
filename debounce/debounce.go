// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debounce filters a sampled mechanical button into a stable
// pressed state and arms a session deadline when a press is confirmed.
package debounce

// State is a debounced button state.
type State int

const (
	Released State = iota
	Pressed
)

func (s State) String() string {
	switch s {
	case Released:
		return "released"
	case Pressed:
		return "pressed"
	default:
		return "unknown"
	}
}

const (
	// MaxCount is the saturation limit of the press counter.
	MaxCount = 6
	// PressAbove is the count above which a released button is pressed.
	PressAbove = 4
	// ReleaseBelow is the count below which a pressed button is released.
	ReleaseBelow = 2

	// Session is the number of clock seconds from a confirmed press to
	// the session deadline.
	Session = 60

	// Day is the period of the clock in seconds. Clock readings wrap to
	// zero at midnight.
	Day = 24 * 60 * 60
)

// Machine is a button debounce state machine. The zero value is a
// released button with no session armed.
type Machine struct {
	count int
	state State
	loops int

	armed    bool
	armedAt  int64
	deadline int64
}

// Update advances the machine by one sample. down is the raw button
// sample and now is the current clock reading in seconds. Update reports
// whether the debounced state changed.
func (m *Machine) Update(down bool, now int64) (changed bool) {
	if down {
		m.count = min(m.count+1, MaxCount)
	} else {
		m.count = max(m.count-1, 0)
	}

	old := m.state
	switch m.state {
	case Released:
		if m.count > PressAbove {
			m.state = Pressed
			m.armed = true
			m.armedAt = now
			m.deadline = (now + Session) % Day
		}
	case Pressed:
		if m.count < ReleaseBelow {
			m.state = Released
		}
	}

	if m.state == old {
		m.loops++
		return false
	}
	m.loops = 0
	return true
}

// State returns the debounced button state.
func (m *Machine) State() State { return m.state }

// Count returns the current press counter.
func (m *Machine) Count() int { return m.count }

// Loops returns the number of updates since the last state change.
func (m *Machine) Loops() int { return m.loops }

// Armed returns whether a session has been armed, and if so the clock
// reading at which it was armed and its deadline.
func (m *Machine) Armed() (ok bool, at, deadline int64) {
	return m.armed, m.armedAt, m.deadline
}

// Expired returns whether an armed session's deadline has been reached
// at clock reading now. Elapsed time is measured modulo Day so sessions
// armed shortly before midnight still end.
func (m *Machine) Expired(now int64) bool {
	if !m.armed {
		return false
	}
	elapsed := (now - m.armedAt) % Day
	if elapsed < 0 {
		elapsed += Day
	}
	return elapsed >= Session
}
