/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package yolo

import (
	"testing"

	"github.com/fitai/fitai-scan-service/pkg/pose"
)

// buildTensor lays out anchors in channel-major order the way the network emits them
func buildTensor(cfg Config, anchors [][]float32) ([]float32, int) {
	channels := 4 + cfg.NumClasses + cfg.NumKeyPoints*3
	data := make([]float32, channels*len(anchors))
	for i, values := range anchors {
		for ch, v := range values {
			data[ch*len(anchors)+i] = v
		}
	}
	return data, channels
}

func anchor(cfg Config, cx, cy, w, h, score, kx, ky, kconf float32) []float32 {
	values := []float32{cx, cy, w, h, score}
	for k := 0; k < cfg.NumKeyPoints; k++ {
		values = append(values, kx, ky, kconf)
	}
	return values
}

func TestDecodeKeepsBestOverlappingDetection(t *testing.T) {
	cfg := DefaultConfig()
	lb := NewLetterbox(1280, 720, 640)
	if lb.Scale != 0.5 {
		t.Fatalf("expected scale 0.5, got %v", lb.Scale)
	}

	data, channels := buildTensor(cfg, [][]float32{
		anchor(cfg, 320, 180, 100, 300, 0.60, 300, 100, 0.9),
		anchor(cfg, 322, 181, 100, 300, 0.90, 310, 110, 0.8),
		anchor(cfg, 100, 100, 10, 10, 0.10, 0, 0, 0.1),
	})

	detections, err := Decode(cfg, data, channels, 3, lb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("expected 1 detection after NMS, got %d", len(detections))
	}
	if detections[0].Score != 0.90 {
		t.Errorf("expected the higher score to survive, got %v", detections[0].Score)
	}

	kp := detections[0].KeyPoints[pose.LeftShoulder]
	if kp.Name != pose.LeftShoulder || kp.X != 620 || kp.Y != 220 {
		t.Errorf("unexpected keypoint mapping: %+v", kp)
	}
}

func TestDecodeClampsKeyPointsToFrame(t *testing.T) {
	cfg := DefaultConfig()
	lb := NewLetterbox(640, 640, 640)
	data, channels := buildTensor(cfg, [][]float32{
		anchor(cfg, 320, 320, 50, 50, 0.99, 900, -20, 0.7),
	})

	detections, err := Decode(cfg, data, channels, 1, lb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kp := detections[0].KeyPoints[0]
	if kp.X != 640 || kp.Y != 0 {
		t.Errorf("expected clamped keypoint (640, 0), got (%v, %v)", kp.X, kp.Y)
	}
}

func TestDecodeRejectsWrongChannelCount(t *testing.T) {
	if _, err := Decode(DefaultConfig(), make([]float32, 10), 5, 2, NewLetterbox(10, 10, 640)); err == nil {
		t.Fatal("expected an error for mismatched channel count")
	}
}

func TestBest(t *testing.T) {
	lb := NewLetterbox(100, 50, 640)
	if Best(nil, lb) != nil {
		t.Fatal("expected nil snapshot for no detections")
	}

	snapshot := Best([]Detection{
		{Score: 0.5, KeyPoints: []pose.Keypoint{{Name: pose.Nose, X: 1}}},
		{Score: 0.8, KeyPoints: []pose.Keypoint{{Name: pose.Nose, X: 2}}},
	}, lb)
	if snapshot.Units != pose.Pixel || snapshot.FrameWidth != 100 || snapshot.FrameHeight != 50 {
		t.Errorf("unexpected snapshot metadata: %+v", snapshot)
	}
	if kp, _ := snapshot.Get(pose.Nose); kp.X != 2 {
		t.Errorf("expected best detection to be chosen, got %+v", kp)
	}
}
