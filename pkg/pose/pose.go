/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package pose

import (
	"context"
	"encoding/json"
)

// Name identifies one of the 17 COCO body landmarks
type Name int

// Keypoint names in the fixed order returned by the pose model
const (
	Nose Name = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumKeypoints is the number of landmarks produced per pose
const NumKeypoints = 17

var names = [NumKeypoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

func (name Name) String() string {
	if name < 0 || int(name) >= NumKeypoints {
		return "unknown"
	}
	return names[name]
}

// MarshalJSON writes the snake_case landmark name
func (name Name) MarshalJSON() ([]byte, error) {
	return json.Marshal(name.String())
}

// ParseName is the reverse of Name.String
func ParseName(s string) (Name, bool) {
	for i, n := range names {
		if n == s {
			return Name(i), true
		}
	}
	return 0, false
}

// Skeleton lists the landmark pairs joined when drawing a pose
var Skeleton = [][2]Name{
	{LeftAnkle, LeftKnee}, {LeftKnee, LeftHip}, {RightAnkle, RightKnee}, {RightKnee, RightHip},
	{LeftHip, RightHip}, {LeftShoulder, LeftHip}, {RightShoulder, RightHip}, {LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {RightShoulder, RightElbow}, {LeftElbow, LeftWrist}, {RightElbow, RightWrist},
	{LeftEye, RightEye}, {Nose, LeftEye}, {Nose, RightEye}, {LeftEye, LeftEar}, {RightEye, RightEar},
}

// Units describes the coordinate convention of a Snapshot
type Units int

const (
	// Pixel coordinates are in the source frame's intrinsic resolution
	Pixel Units = iota
	// Normalized coordinates are fractions (0..1) of the frame dimensions
	Normalized
	// Auto treats a point as normalized when either coordinate is <= 1.01
	Auto
)

// AutoThreshold is the cutoff used by Auto unit detection
const AutoThreshold = 1.01

type Keypoint struct {
	Name  Name    `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Snapshot is the set of keypoints for one subject in one frame
type Snapshot struct {
	Keypoints []Keypoint
	Units     Units
	// FrameWidth and FrameHeight are the intrinsic source dimensions, 0 when unknown
	FrameWidth  int
	FrameHeight int
}

// Get returns the keypoint with the given name, if present
func (snapshot *Snapshot) Get(name Name) (Keypoint, bool) {
	if snapshot == nil {
		return Keypoint{}, false
	}
	for _, kp := range snapshot.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Score returns the confidence of a landmark or 0 when it is missing
func (snapshot *Snapshot) Score(name Name) float64 {
	if kp, ok := snapshot.Get(name); ok {
		return kp.Score
	}
	return 0
}

// PixelPoint returns a landmark in source-frame pixels, resolving the
// snapshot units against its frame dimensions. Normalized points are
// returned unscaled when the frame size is unknown.
func (snapshot *Snapshot) PixelPoint(name Name) (x, y float64, ok bool) {
	kp, found := snapshot.Get(name)
	if !found {
		return 0, 0, false
	}
	if snapshot.IsNormalized(kp) && snapshot.FrameWidth > 0 && snapshot.FrameHeight > 0 {
		return kp.X * float64(snapshot.FrameWidth), kp.Y * float64(snapshot.FrameHeight), true
	}
	return kp.X, kp.Y, true
}

// IsNormalized reports whether a keypoint of this snapshot is expressed in normalized units
func (snapshot *Snapshot) IsNormalized(kp Keypoint) bool {
	switch snapshot.Units {
	case Normalized:
		return true
	case Auto:
		return kp.X <= AutoThreshold || kp.Y <= AutoThreshold
	default:
		return false
	}
}

// Estimator runs pose inference on a single frame.
// A nil snapshot with a nil error means no subject was detected.
type Estimator interface {
	EstimatePose(ctx context.Context, frame Frame) (*Snapshot, error)
}

// Frame is an opaque video frame handed from a frame source to an estimator
type Frame interface {
	Size() (width, height int)
}
