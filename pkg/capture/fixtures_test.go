/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

import (
	"github.com/fitai/fitai-scan-service/pkg/geometry"
	"github.com/fitai/fitai-scan-service/pkg/pose"
)

const (
	frameWidth  = 1280
	frameHeight = 720
)

// canvasTarget matches the frame so the cover transform is the identity
var canvasTarget = geometry.RenderTarget{CSSWidth: frameWidth, CSSHeight: frameHeight, DevicePixelRatio: 1}

// standingPose is a confident subject whose torso centroid is (640, 350),
// inside the guidance box of canvasTarget
func standingPose() *pose.Snapshot {
	return &pose.Snapshot{
		Units:       pose.Pixel,
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		Keypoints: []pose.Keypoint{
			{Name: pose.Nose, X: 640, Y: 180, Score: 0.9},
			{Name: pose.LeftShoulder, X: 600, Y: 250, Score: 0.9},
			{Name: pose.RightShoulder, X: 680, Y: 250, Score: 0.9},
			{Name: pose.LeftElbow, X: 580, Y: 330, Score: 0.8},
			{Name: pose.RightElbow, X: 700, Y: 330, Score: 0.8},
			{Name: pose.LeftWrist, X: 575, Y: 410, Score: 0.7},
			{Name: pose.RightWrist, X: 705, Y: 410, Score: 0.7},
			{Name: pose.LeftHip, X: 610, Y: 450, Score: 0.9},
			{Name: pose.RightHip, X: 670, Y: 450, Score: 0.9},
			{Name: pose.LeftKnee, X: 615, Y: 550, Score: 0.8},
			{Name: pose.RightKnee, X: 665, Y: 550, Score: 0.8},
			{Name: pose.LeftAnkle, X: 620, Y: 650, Score: 0.8},
			{Name: pose.RightAnkle, X: 660, Y: 650, Score: 0.8},
		},
	}
}

// without returns a copy of the snapshot with the named joints removed
func without(snapshot *pose.Snapshot, names ...pose.Name) *pose.Snapshot {
	out := *snapshot
	out.Keypoints = nil
	for _, kp := range snapshot.Keypoints {
		drop := false
		for _, name := range names {
			if kp.Name == name {
				drop = true
			}
		}
		if !drop {
			out.Keypoints = append(out.Keypoints, kp)
		}
	}
	return &out
}

// withScore returns a copy of the snapshot with the named joint's score replaced
func withScore(snapshot *pose.Snapshot, name pose.Name, score float64) *pose.Snapshot {
	out := *snapshot
	out.Keypoints = append([]pose.Keypoint(nil), snapshot.Keypoints...)
	for i := range out.Keypoints {
		if out.Keypoints[i].Name == name {
			out.Keypoints[i].Score = score
		}
	}
	return &out
}

// shifted returns a copy of the snapshot moved by dx, dy
func shifted(snapshot *pose.Snapshot, dx, dy float64) *pose.Snapshot {
	out := *snapshot
	out.Keypoints = append([]pose.Keypoint(nil), snapshot.Keypoints...)
	for i := range out.Keypoints {
		out.Keypoints[i].X += dx
		out.Keypoints[i].Y += dy
	}
	return &out
}
