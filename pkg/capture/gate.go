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

const (
	coreJointMinScore = 0.35
	ankleMinScore     = 0.25

	minJitterThresholdPx     = 3.0
	jitterWidthFraction      = 0.004
	unknownJitterThresholdPx = 6.0
)

var (
	requiredJoints = []pose.Name{pose.Nose, pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip}
	coreJoints     = []pose.Name{pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip}
	trackedJoints  = []pose.Name{
		pose.Nose, pose.LeftShoulder, pose.RightShoulder,
		pose.LeftHip, pose.RightHip, pose.LeftAnkle, pose.RightAnkle,
	}
)

// IsConfident reports whether the torso and at least one ankle are visible enough to measure
func IsConfident(snapshot *pose.Snapshot) bool {
	if snapshot == nil {
		return false
	}
	for _, name := range requiredJoints {
		kp, ok := snapshot.Get(name)
		if !ok || kp.Score <= coreJointMinScore {
			return false
		}
	}
	for _, name := range []pose.Name{pose.LeftAnkle, pose.RightAnkle} {
		if kp, ok := snapshot.Get(name); ok && kp.Score > ankleMinScore {
			return true
		}
	}
	return false
}

// IsCentered reports whether the torso centroid, mapped onto the canvas, lies inside the guidance box
func IsCentered(snapshot *pose.Snapshot, transform *geometry.Transform, box geometry.Box) bool {
	if snapshot == nil || transform == nil {
		return false
	}
	var sumX, sumY float64
	for _, name := range coreJoints {
		kp, ok := snapshot.Get(name)
		if !ok {
			return false
		}
		sumX += kp.X
		sumY += kp.Y
	}
	x, y := transform.MapPoint(sumX/4, sumY/4, snapshot.Units)
	return box.Contains(x, y)
}

// MaxDisplacement is the largest movement in source pixels of any tracked joint
// between two frames. It is +Inf when there is no previous frame.
func MaxDisplacement(previous, current *pose.Snapshot) float64 {
	if previous == nil || current == nil {
		return math.Inf(1)
	}
	maxD := 0.0
	for _, name := range trackedJoints {
		px, py, ok := previous.PixelPoint(name)
		if !ok {
			continue
		}
		cx, cy, ok := current.PixelPoint(name)
		if !ok {
			continue
		}
		maxD = math.Max(maxD, geometry.Distance(px, py, cx, cy))
	}
	return maxD
}

// JitterThreshold is the per-frame movement tolerated as stillness, in source pixels
func JitterThreshold(transform *geometry.Transform) float64 {
	if transform == nil {
		return unknownJitterThresholdPx
	}
	return math.Max(minJitterThresholdPx, transform.FrameW*jitterWidthFraction)
}
