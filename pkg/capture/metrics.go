/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

import (
	"time"

	"github.com/fitai/fitai-scan-service/pkg/pose"
)

// Capture method tags
const (
	MethodAutoHold = "auto_hold"
	MethodCard     = "card"
	MethodHeight   = "height"
)

// SummaryPoint is a keypoint as reported by the estimator
type SummaryPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// PoseSummary is the reduced set of landmarks attached to a capture
type PoseSummary struct {
	Nose          *SummaryPoint `json:"nose"`
	LeftAnkle     *SummaryPoint `json:"leftAnkle"`
	RightAnkle    *SummaryPoint `json:"rightAnkle"`
	LeftShoulder  *SummaryPoint `json:"leftShoulder"`
	RightShoulder *SummaryPoint `json:"rightShoulder"`
	LeftHip       *SummaryPoint `json:"leftHip"`
	RightHip      *SummaryPoint `json:"rightHip"`
}

// CaptureMetrics is the document exported once per capture or calibration
type CaptureMetrics struct {
	Method          string          `json:"method"`
	ScaleCmPerPixel *float64        `json:"scaleCmPerPixel"`
	KnownHeightCm   *float64        `json:"knownHeightCm"`
	PixelHeightPx   *float64        `json:"pixelHeightPx,omitempty"`
	Timestamp       string          `json:"timestamp"`
	PoseSummary     *PoseSummary    `json:"poseSummary,omitempty"`
	MuscleEstimates *MuscleEstimate `json:"muscleEstimates,omitempty"`
}

func summaryPoint(snapshot *pose.Snapshot, name pose.Name) *SummaryPoint {
	kp, ok := snapshot.Get(name)
	if !ok {
		return nil
	}
	return &SummaryPoint{X: kp.X, Y: kp.Y, Score: kp.Score}
}

// Summarize extracts the landmarks used by downstream consumers
func Summarize(snapshot *pose.Snapshot) *PoseSummary {
	return &PoseSummary{
		Nose:          summaryPoint(snapshot, pose.Nose),
		LeftAnkle:     summaryPoint(snapshot, pose.LeftAnkle),
		RightAnkle:    summaryPoint(snapshot, pose.RightAnkle),
		LeftShoulder:  summaryPoint(snapshot, pose.LeftShoulder),
		RightShoulder: summaryPoint(snapshot, pose.RightShoulder),
		LeftHip:       summaryPoint(snapshot, pose.LeftHip),
		RightHip:      summaryPoint(snapshot, pose.RightHip),
	}
}

// NewAutoHoldMetrics packages a triggered capture. The calibration scale and
// reference height are included only when a calibration is active.
func NewAutoHoldMetrics(snapshot *pose.Snapshot, calibration *Calibration, knownHeightCm float64, now time.Time) *CaptureMetrics {
	estimate := ScoreMuscles(snapshot)
	metrics := &CaptureMetrics{
		Method:          MethodAutoHold,
		Timestamp:       isoTimestamp(now),
		PoseSummary:     Summarize(snapshot),
		MuscleEstimates: &estimate,
	}
	if calibration != nil {
		scale := calibration.ScaleCmPerPixel
		height := knownHeightCm
		metrics.ScaleCmPerPixel = &scale
		metrics.KnownHeightCm = &height
	}
	return metrics
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
