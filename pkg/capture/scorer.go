/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

import (
	"math"

	"github.com/fitai/fitai-scan-service/pkg/geometry"
	"github.com/fitai/fitai-scan-service/pkg/pose"
)

// MuscleEstimate holds heuristic 0-100 engagement proxies derived from one pose.
// These are visibility and geometry signals for display, not measurements.
type MuscleEstimate struct {
	Shoulders int         `json:"shoulders"`
	Biceps    int         `json:"biceps"`
	Triceps   int         `json:"triceps"`
	Chest     int         `json:"chest"`
	Back      int         `json:"back"`
	Legs      int         `json:"legs"`
	Debug     ScorerDebug `json:"debug"`
}

// ScorerDebug exposes the intermediate geometry, rounded to one decimal
type ScorerDebug struct {
	LeftElbowAngle  *float64 `json:"leftElbowAngle"`
	RightElbowAngle *float64 `json:"rightElbowAngle"`
	ShoulderDist    float64  `json:"shoulderDist"`
	TorsoHeight     float64  `json:"torsoHeight"`
}

type point struct {
	x, y, score float64
}

type joints map[pose.Name]point

func collect(snapshot *pose.Snapshot) joints {
	j := make(joints)
	if snapshot == nil {
		return j
	}
	for _, kp := range snapshot.Keypoints {
		if x, y, ok := snapshot.PixelPoint(kp.Name); ok {
			j[kp.Name] = point{x: x, y: y, score: kp.Score}
		}
	}
	return j
}

func (j joints) score(name pose.Name) float64 {
	return j[name].score
}

func (j joints) has(names ...pose.Name) bool {
	for _, name := range names {
		if _, ok := j[name]; !ok {
			return false
		}
	}
	return true
}

type arm struct {
	angle *float64
	vis   float64
}

func (j joints) arm(shoulder, elbow, wrist pose.Name) arm {
	a := arm{vis: (j.score(shoulder) + j.score(elbow) + j.score(wrist)) / 3}
	if j.has(shoulder, elbow, wrist) {
		s, e, w := j[shoulder], j[elbow], j[wrist]
		if angle, ok := geometry.AngleAt(s.x, s.y, e.x, e.y, w.x, w.y); ok {
			a.angle = &angle
		}
	}
	return a
}

// ScoreMuscles derives engagement proxies from a single pose. Missing joints
// degrade the affected scores toward zero.
func ScoreMuscles(snapshot *pose.Snapshot) MuscleEstimate {
	j := collect(snapshot)
	var estimate MuscleEstimate

	estimate.Shoulders = percent((j.score(pose.LeftShoulder) + j.score(pose.RightShoulder)) / 2)

	left := j.arm(pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
	right := j.arm(pose.RightShoulder, pose.RightElbow, pose.RightWrist)
	visibleArms := 0
	for _, a := range []arm{left, right} {
		if a.vis > 0 {
			visibleArms++
		}
	}
	if visibleArms == 0 {
		visibleArms = 1
	}
	flex := func(a arm) float64 {
		if a.angle == nil {
			return 0
		}
		return clamp01((180 - *a.angle) / 150)
	}
	ext := func(a arm) float64 {
		if a.angle == nil {
			return 0
		}
		return clamp01((*a.angle - 30) / 150)
	}
	estimate.Biceps = percent((flex(left)*left.vis + flex(right)*right.vis) / float64(visibleArms))
	estimate.Triceps = percent((ext(left)*left.vis + ext(right)*right.vis) / float64(visibleArms))
	estimate.Debug.LeftElbowAngle = roundedPtr(left.angle)
	estimate.Debug.RightElbowAngle = roundedPtr(right.angle)

	if j.has(pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip) {
		ls, rs := j[pose.LeftShoulder], j[pose.RightShoulder]
		lh, rh := j[pose.LeftHip], j[pose.RightHip]

		shoulderDist := geometry.Distance(ls.x, ls.y, rs.x, rs.y)
		torsoHeight := math.Abs((ls.y+rs.y)/2 - (lh.y+rh.y)/2)
		vis := (ls.score + rs.score + lh.score + rh.score) / 4

		if shoulderDist > 0 && torsoHeight > 0 {
			estimate.Chest = percent(clamp01((shoulderDist/torsoHeight-0.5)/0.8) * vis)
		}

		offset := clamp01(math.Abs((ls.x+rs.x)/2-(lh.x+rh.x)/2) / math.Max(shoulderDist, 1))
		estimate.Back = percent((1 - offset) * vis)

		estimate.Debug.ShoulderDist = round1(shoulderDist)
		estimate.Debug.TorsoHeight = round1(torsoHeight)
	}

	leftLeg := (j.score(pose.LeftHip) + j.score(pose.LeftKnee) + j.score(pose.LeftAnkle)) / 3
	rightLeg := (j.score(pose.RightHip) + j.score(pose.RightKnee) + j.score(pose.RightAnkle)) / 3
	estimate.Legs = percent((leftLeg + rightLeg) / 2)

	return estimate
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// percent converts a 0..1 fraction to a rounded, clamped 0..100 integer
func percent(v float64) int {
	return int(math.Round(clamp01(v) * 100))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func roundedPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round1(*v)
	return &r
}
