/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package pose

import "testing"

func TestNameRoundTrip(t *testing.T) {
	for i := 0; i < NumKeypoints; i++ {
		name := Name(i)
		parsed, ok := ParseName(name.String())
		if !ok || parsed != name {
			t.Errorf("ParseName(%q) = %v, %v", name.String(), parsed, ok)
		}
	}
	if Name(42).String() != "unknown" {
		t.Error("expected out of range name to be unknown")
	}
}

func TestPixelPointUnits(t *testing.T) {
	tests := []struct {
		name  string
		units Units
		x, y  float64
		wantX float64
		wantY float64
	}{
		{"pixel stays pixel", Pixel, 0.5, 300, 0.5, 300},
		{"normalized scales", Normalized, 0.5, 0.25, 320, 120},
		{"auto small is normalized", Auto, 0.5, 0.25, 320, 120},
		{"auto one small coord scales both", Auto, 1.0, 300, 640, 144000},
		{"auto large is pixel", Auto, 200, 300, 200, 300},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			snapshot := &Snapshot{
				Keypoints:   []Keypoint{{Name: Nose, X: test.x, Y: test.y, Score: 1}},
				Units:       test.units,
				FrameWidth:  640,
				FrameHeight: 480,
			}
			x, y, ok := snapshot.PixelPoint(Nose)
			if !ok || x != test.wantX || y != test.wantY {
				t.Errorf("got (%v, %v, %v), want (%v, %v)", x, y, ok, test.wantX, test.wantY)
			}
		})
	}
}

func TestMissingKeypoint(t *testing.T) {
	var snapshot *Snapshot
	if _, ok := snapshot.Get(Nose); ok {
		t.Error("nil snapshot should have no keypoints")
	}
	if (&Snapshot{}).Score(LeftAnkle) != 0 {
		t.Error("missing keypoint should score 0")
	}
}
