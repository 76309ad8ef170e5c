/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package camera

import (
	"math"
	"testing"
)

func TestCodecToFloat64(t *testing.T) {
	tests := []struct {
		codec string
		want  float64
	}{
		{"MJPG", float64('M' | 'J'<<8 | 'P'<<16 | 'G'<<24)},
		{"YUYV", float64('Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24)},
		{"MJP", -1},
		{"", -1},
	}
	for _, test := range tests {
		if got := codecToFloat64(test.codec); got != test.want {
			t.Errorf("codecToFloat64(%q) = %v, want %v", test.codec, got, test.want)
		}
	}
}

func TestStageTiming(t *testing.T) {
	timing := newStageTiming("TestStageTiming")
	if timing.mean() != 0 || perSecond(float64(timing.last)) != 0 {
		t.Error("expected zero values without samples")
	}
	for _, v := range []int64{40, 20, 60, -5} {
		timing.observe(v)
	}
	if timing.last != 60 {
		t.Errorf("negative samples must be ignored, last = %d", timing.last)
	}
	if math.Abs(timing.mean()-40) > 1e-9 {
		t.Errorf("unexpected mean %v", timing.mean())
	}
	if math.Abs(perSecond(timing.mean())-25) > 1e-9 {
		t.Errorf("unexpected fps %v", perSecond(timing.mean()))
	}
}

func TestSnapshotName(t *testing.T) {
	if got := snapshotName("2024-01-01T10:20:30.456Z"); got != "fitai_snapshot_20240101T102030.456.jpg" {
		t.Errorf("unexpected name %q", got)
	}
}
