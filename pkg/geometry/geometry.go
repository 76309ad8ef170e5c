/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/fitai/fitai-scan-service/pkg/pose"
)

const (
	guidanceLeftFraction   = 0.25
	guidanceTopFraction    = 0.15
	guidanceWidthFraction  = 0.5
	guidanceHeightFraction = 0.7
)

// RenderTarget describes the on-screen drawing surface in CSS pixels
type RenderTarget struct {
	CSSWidth         float64 `json:"css_width"`
	CSSHeight        float64 `json:"css_height"`
	DevicePixelRatio float64 `json:"device_pixel_ratio"`
}

// BackingSize returns the device pixel dimensions of the surface
func (target RenderTarget) BackingSize() (width, height int) {
	dpr := target.DevicePixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	return int(math.Round(target.CSSWidth * dpr)), int(math.Round(target.CSSHeight * dpr))
}

// Transform maps source-frame coordinates onto a canvas under a cover fit
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
	FrameW  float64
	FrameH  float64
}

// Cover computes a centered scale-to-fill transform.
// Returns nil when either the frame or the canvas has no area.
func Cover(frameW, frameH int, target RenderTarget) *Transform {
	if frameW <= 0 || frameH <= 0 || target.CSSWidth <= 0 || target.CSSHeight <= 0 {
		return nil
	}
	fw, fh := float64(frameW), float64(frameH)
	scale := math.Max(target.CSSWidth/fw, target.CSSHeight/fh)
	return &Transform{
		Scale:   scale,
		OffsetX: (target.CSSWidth - fw*scale) / 2,
		OffsetY: (target.CSSHeight - fh*scale) / 2,
		FrameW:  fw,
		FrameH:  fh,
	}
}

// MapPoint converts a point expressed in the given units into canvas CSS pixels
func (transform *Transform) MapPoint(x, y float64, units pose.Units) (float64, float64) {
	normalized := units == pose.Normalized ||
		(units == pose.Auto && (x <= pose.AutoThreshold || y <= pose.AutoThreshold))
	if normalized {
		x *= transform.FrameW
		y *= transform.FrameH
	}
	return x*transform.Scale + transform.OffsetX, y*transform.Scale + transform.OffsetY
}

// MapKeypoint maps a keypoint of a snapshot, honoring the snapshot units
func (transform *Transform) MapKeypoint(snapshot *pose.Snapshot, kp pose.Keypoint) (float64, float64) {
	return transform.MapPoint(kp.X, kp.Y, snapshot.Units)
}

// Box is an axis aligned rectangle in canvas CSS pixels
type Box struct {
	X, Y, W, H float64
}

// GuidanceBox is the centered target region a subject must stand inside
func GuidanceBox(target RenderTarget) Box {
	return Box{
		X: target.CSSWidth * guidanceLeftFraction,
		Y: target.CSSHeight * guidanceTopFraction,
		W: target.CSSWidth * guidanceWidthFraction,
		H: target.CSSHeight * guidanceHeightFraction,
	}
}

// Contains tests strict interior membership
func (box Box) Contains(x, y float64) bool {
	return x > box.X && x < box.X+box.W && y > box.Y && y < box.Y+box.H
}

// Distance is the Euclidean distance between two points
func Distance(ax, ay, bx, by float64) float64 {
	return r2.Norm(r2.Sub(r2.Vec{X: ax, Y: ay}, r2.Vec{X: bx, Y: by}))
}

// AngleAt returns the interior angle in degrees at vertex b formed by a-b-c.
// ok is false when either arm has zero length.
func AngleAt(ax, ay, bx, by, cx, cy float64) (float64, bool) {
	ab := r2.Sub(r2.Vec{X: ax, Y: ay}, r2.Vec{X: bx, Y: by})
	cb := r2.Sub(r2.Vec{X: cx, Y: cy}, r2.Vec{X: bx, Y: by})
	m1, m2 := r2.Norm(ab), r2.Norm(cb)
	if m1 == 0 || m2 == 0 {
		return 0, false
	}
	cos := r2.Dot(ab, cb) / (m1 * m2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}
