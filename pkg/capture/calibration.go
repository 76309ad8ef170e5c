/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/fitai/fitai-scan-service/pkg/geometry"
	"github.com/fitai/fitai-scan-service/pkg/pose"
)

const (
	cardWidthCm             = 8.56
	cardCanvasWidthFraction = 0.34
	cardFallbackPx          = 220.0

	heightMinScore = 0.2

	// DefaultKnownHeightCm is the reference height used when none is supplied
	DefaultKnownHeightCm = 175.0
)

var (
	// ErrNoSubject is returned when a calibration needs a pose and none is available
	ErrNoSubject = errors.New("no person detected for height calibration")
	// ErrUnreliableLandmarks is returned when the nose or ankle is too uncertain to measure
	ErrUnreliableLandmarks = errors.New("could not detect top/bottom reliably")
)

// Calibration converts source pixels to centimeters
type Calibration struct {
	Method          string  `json:"method"`
	ScaleCmPerPixel float64 `json:"scaleCmPerPixel"`
	KnownHeightCm   float64 `json:"knownHeightCm,omitempty"`
	PixelHeightPx   float64 `json:"pixelHeightPx,omitempty"`
}

// CalibrateCard assumes a standard ID card spans about a third of the canvas width
func CalibrateCard(target geometry.RenderTarget) Calibration {
	assumedPx := cardFallbackPx
	if target.CSSWidth > 0 {
		assumedPx = target.CSSWidth * cardCanvasWidthFraction
	}
	return Calibration{
		Method:          MethodCard,
		ScaleCmPerPixel: cardWidthCm / assumedPx,
	}
}

// CalibrateHeight measures nose to ankle against the subject's known height
func CalibrateHeight(snapshot *pose.Snapshot, knownHeightCm float64) (Calibration, error) {
	if snapshot == nil || len(snapshot.Keypoints) == 0 {
		return Calibration{}, ErrNoSubject
	}
	if knownHeightCm <= 0 {
		knownHeightCm = DefaultKnownHeightCm
	}

	ankle := pose.RightAnkle
	if snapshot.Score(pose.LeftAnkle) > snapshot.Score(pose.RightAnkle) {
		ankle = pose.LeftAnkle
	}

	nose, noseOK := snapshot.Get(pose.Nose)
	foot, footOK := snapshot.Get(ankle)
	if !noseOK || !footOK || nose.Score < heightMinScore || foot.Score < heightMinScore {
		return Calibration{}, ErrUnreliableLandmarks
	}

	nx, ny, _ := snapshot.PixelPoint(pose.Nose)
	ax, ay, _ := snapshot.PixelPoint(ankle)
	pixels := math.Hypot(nx-ax, ny-ay)
	if pixels == 0 {
		return Calibration{}, ErrUnreliableLandmarks
	}

	return Calibration{
		Method:          MethodHeight,
		ScaleCmPerPixel: knownHeightCm / pixels,
		KnownHeightCm:   knownHeightCm,
		PixelHeightPx:   pixels,
	}, nil
}

// Metrics builds the document exported when a calibration is applied
func (calibration Calibration) Metrics(knownHeightCm float64, now time.Time) *CaptureMetrics {
	scale := calibration.ScaleCmPerPixel
	height := knownHeightCm
	metrics := &CaptureMetrics{
		Method:          calibration.Method,
		ScaleCmPerPixel: &scale,
		KnownHeightCm:   &height,
		Timestamp:       isoTimestamp(now),
	}
	if calibration.PixelHeightPx > 0 {
		pixels := calibration.PixelHeightPx
		metrics.PixelHeightPx = &pixels
	}
	return metrics
}
