/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package geometry

import (
	"math"
	"testing"

	"github.com/fitai/fitai-scan-service/pkg/pose"
)

func TestCoverIsIdempotent(t *testing.T) {
	target := RenderTarget{CSSWidth: 400, CSSHeight: 800, DevicePixelRatio: 2}
	first := Cover(1280, 720, target)
	second := Cover(1280, 720, target)
	if first == nil || second == nil {
		t.Fatal("expected a transform")
	}
	if *first != *second {
		t.Fatalf("expected identical transforms, got %+v and %+v", first, second)
	}
}

func TestCoverScaleAndOffsets(t *testing.T) {
	// 1280x720 into 400x800: height dominates, scale = 800/720
	transform := Cover(1280, 720, RenderTarget{CSSWidth: 400, CSSHeight: 800})
	wantScale := 800.0 / 720.0
	if math.Abs(transform.Scale-wantScale) > 1e-9 {
		t.Errorf("scale = %v, want %v", transform.Scale, wantScale)
	}
	wantOffsetX := (400 - 1280*wantScale) / 2
	if math.Abs(transform.OffsetX-wantOffsetX) > 1e-9 || transform.OffsetY != 0 {
		t.Errorf("offsets = (%v, %v), want (%v, 0)", transform.OffsetX, transform.OffsetY, wantOffsetX)
	}

	// frame center lands on canvas center
	x, y := transform.MapPoint(640, 360, pose.Pixel)
	if math.Abs(x-200) > 1e-9 || math.Abs(y-400) > 1e-9 {
		t.Errorf("center mapped to (%v, %v)", x, y)
	}
	nx, ny := transform.MapPoint(0.5, 0.5, pose.Normalized)
	if nx != x || ny != y {
		t.Errorf("normalized center mapped to (%v, %v), want (%v, %v)", nx, ny, x, y)
	}
}

func TestCoverWithoutSurface(t *testing.T) {
	if Cover(0, 720, RenderTarget{CSSWidth: 10, CSSHeight: 10}) != nil {
		t.Error("expected nil transform without frame")
	}
	if Cover(1280, 720, RenderTarget{}) != nil {
		t.Error("expected nil transform without canvas")
	}
}

func TestGuidanceBoxContainsIsStrict(t *testing.T) {
	box := GuidanceBox(RenderTarget{CSSWidth: 400, CSSHeight: 1000})
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
	if !near(box.X, 100) || !near(box.Y, 150) || !near(box.W, 200) || !near(box.H, 700) {
		t.Fatalf("unexpected box %+v", box)
	}

	tests := []struct {
		x, y float64
		want bool
	}{
		{200, 500, true},
		{box.X, 500, false},
		{box.X + box.W, 500, false},
		{200, box.Y, false},
		{200, box.Y + box.H, false},
		{box.X + 0.01, box.Y + 0.01, true},
	}
	for _, test := range tests {
		if got := box.Contains(test.x, test.y); got != test.want {
			t.Errorf("Contains(%v, %v) = %v, want %v", test.x, test.y, got, test.want)
		}
	}
}

func TestAngleAt(t *testing.T) {
	angle, ok := AngleAt(1, 0, 0, 0, 0, 1)
	if !ok || math.Abs(angle-90) > 1e-9 {
		t.Errorf("expected right angle, got %v %v", angle, ok)
	}
	if _, ok := AngleAt(0, 0, 0, 0, 1, 1); ok {
		t.Error("expected undefined angle for zero-length arm")
	}
}

func TestBackingSize(t *testing.T) {
	w, h := RenderTarget{CSSWidth: 320.5, CSSHeight: 240, DevicePixelRatio: 2}.BackingSize()
	if w != 641 || h != 480 {
		t.Errorf("got %dx%d", w, h)
	}
	w, h = RenderTarget{CSSWidth: 100, CSSHeight: 50}.BackingSize()
	if w != 100 || h != 50 {
		t.Errorf("zero dpr should default to 1, got %dx%d", w, h)
	}
}
