/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

import (
	"math"
	"time"
)

// HoldDuration is the accumulated stable time required to trigger a capture
const HoldDuration = 3000 * time.Millisecond

// State of the dwell-stability accumulator
type State int

const (
	// Idle means the subject is not confidently inside the guidance box
	Idle State = iota
	// Accumulating means stable time is being counted toward a capture
	Accumulating
	// Triggered is a latch held until Reset
	Triggered
)

func (state State) String() string {
	switch state {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Triggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// MarshalText lets the state appear by name in JSON status documents
func (state State) MarshalText() ([]byte, error) {
	return []byte(state.String()), nil
}

// Observation is what the accumulator needs to know about one frame
type Observation struct {
	// InPosition is true when the pose is confident and centered
	InPosition   bool
	Displacement float64
	Threshold    float64
	Now          time.Time
}

// Accumulator counts stable dwell time and fires exactly once per arming
type Accumulator struct {
	state       State
	accumulated time.Duration
	last        time.Time
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Update feeds one frame and returns true only on the frame that triggers
func (acc *Accumulator) Update(obs Observation) bool {
	dt := time.Duration(0)
	if !acc.last.IsZero() && obs.Now.After(acc.last) {
		dt = obs.Now.Sub(acc.last)
	}
	acc.last = obs.Now

	if acc.state == Triggered {
		return false
	}

	if !obs.InPosition {
		acc.state = Idle
		acc.accumulated = 0
		return false
	}

	acc.state = Accumulating
	if obs.Displacement <= obs.Threshold {
		acc.accumulated += dt
	}

	if acc.accumulated >= HoldDuration {
		acc.state = Triggered
		return true
	}
	return false
}

// Remaining returns the whole seconds left on the countdown.
// ok is false while idle.
func (acc *Accumulator) Remaining() (int, bool) {
	switch acc.state {
	case Accumulating:
		left := HoldDuration - acc.accumulated
		if left < 0 {
			left = 0
		}
		return int(math.Ceil(float64(left) / float64(time.Second))), true
	case Triggered:
		return 0, true
	default:
		return 0, false
	}
}

func (acc *Accumulator) State() State {
	return acc.state
}

func (acc *Accumulator) Accumulated() time.Duration {
	return acc.accumulated
}

// Reset re-arms the accumulator
func (acc *Accumulator) Reset() {
	acc.state = Idle
	acc.accumulated = 0
	acc.last = time.Time{}
}
