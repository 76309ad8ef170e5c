/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package yolo

import (
	"image"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fitai/fitai-scan-service/pkg/pose"
)

// Config holds the post-processing parameters of a YOLO pose model
type Config struct {
	NumClasses    int
	NumKeyPoints  int
	InputSize     int
	ConfThreshold float32
	IOUThreshold  float32
}

// DefaultConfig matches the stock single-class COCO pose export
func DefaultConfig() Config {
	return Config{
		NumClasses:    1,
		NumKeyPoints:  pose.NumKeypoints,
		InputSize:     640,
		ConfThreshold: 0.45,
		IOUThreshold:  0.5,
	}
}

// Letterbox records how a frame was scaled into the network input
type Letterbox struct {
	Scale float32
	OrigW int
	OrigH int
}

// NewLetterbox computes the top-left anchored scale used to fit a frame into a square input
func NewLetterbox(origW, origH, inputSize int) Letterbox {
	return Letterbox{
		Scale: float32(inputSize) / float32(max(origW, origH)),
		OrigW: origW,
		OrigH: origH,
	}
}

// Detection is a single person found by the network, in source-frame pixels
type Detection struct {
	Score     float32
	Box       image.Rectangle
	KeyPoints []pose.Keypoint
}

type candidate struct {
	origBox      image.Rectangle
	score        float32
	rawKeyPoints []float32
}

// Decode turns a [1, channels, anchors] output tensor into detections after NMS
func Decode(cfg Config, data []float32, channels, anchors int, lb Letterbox) ([]Detection, error) {
	expected := 4 + cfg.NumClasses + cfg.NumKeyPoints*3
	if channels != expected {
		return nil, errors.Errorf("unexpected output channel count %d, expected %d", channels, expected)
	}
	if len(data) < channels*anchors {
		return nil, errors.Errorf("output tensor too short: %d < %d", len(data), channels*anchors)
	}
	if lb.Scale <= 0 {
		return nil, errors.New("letterbox scale must be positive")
	}

	candidates := parseCandidates(cfg, data, anchors, lb)
	kept := nms(candidates, cfg.IOUThreshold)

	detections := make([]Detection, 0, len(kept))
	for _, idx := range kept {
		cand := candidates[idx]
		detections = append(detections, Detection{
			Score:     cand.score,
			Box:       cand.origBox,
			KeyPoints: decodeKeyPoints(cfg, cand.rawKeyPoints, lb),
		})
	}
	logrus.Tracef("yolo decode: %d candidates, %d kept", len(candidates), len(detections))
	return detections, nil
}

// Best picks the highest scoring detection and wraps it in a pixel-unit snapshot.
// Returns nil when there are no detections.
func Best(detections []Detection, lb Letterbox) *pose.Snapshot {
	if len(detections) == 0 {
		return nil
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Score > best.Score {
			best = d
		}
	}
	return &pose.Snapshot{
		Keypoints:   best.KeyPoints,
		Units:       pose.Pixel,
		FrameWidth:  lb.OrigW,
		FrameHeight: lb.OrigH,
	}
}

// data layout: [cx, cy, w, h, class scores..., x1, y1, conf1, ... xK, yK, confK] x anchors
func parseCandidates(cfg Config, data []float32, anchors int, lb Letterbox) []candidate {
	var cands []candidate
	kptStart := 4 + cfg.NumClasses
	numKptValues := cfg.NumKeyPoints * 3

	for i := 0; i < anchors; i++ {
		maxScore := float32(0)
		for c := 0; c < cfg.NumClasses; c++ {
			if score := data[(4+c)*anchors+i]; score > maxScore {
				maxScore = score
			}
		}
		if maxScore < cfg.ConfThreshold {
			continue
		}

		cx := data[i]
		cy := data[anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		raw := make([]float32, numKptValues)
		for k := 0; k < numKptValues; k++ {
			raw[k] = data[(kptStart+k)*anchors+i]
		}

		cands = append(cands, candidate{
			origBox: image.Rect(
				int((cx-w/2)/lb.Scale), int((cy-h/2)/lb.Scale),
				int((cx+w/2)/lb.Scale), int((cy+h/2)/lb.Scale),
			),
			score:        maxScore,
			rawKeyPoints: raw,
		})
	}
	return cands
}

func decodeKeyPoints(cfg Config, raw []float32, lb Letterbox) []pose.Keypoint {
	n := min(cfg.NumKeyPoints, pose.NumKeypoints)
	kpts := make([]pose.Keypoint, n)
	for i := 0; i < n; i++ {
		x := raw[i*3] / lb.Scale
		y := raw[i*3+1] / lb.Scale
		kpts[i] = pose.Keypoint{
			Name:  pose.Name(i),
			X:     float64(min(max(0, x), float32(lb.OrigW))),
			Y:     float64(min(max(0, y), float32(lb.OrigH))),
			Score: float64(raw[i*3+2]),
		}
	}
	return kpts
}

// nms sorts cands by score in place and returns the indices to keep
func nms(cands []candidate, iouThresh float32) []int {
	sort.Slice(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	keep := make([]int, 0)
	suppressed := make([]bool, len(cands))
	for i := range cands {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)
		for j := i + 1; j < len(cands); j++ {
			if !suppressed[j] && iou(cands[i].origBox, cands[j].origBox) > iouThresh {
				suppressed[j] = true
			}
		}
	}
	return keep
}

func iou(r1, r2 image.Rectangle) float32 {
	inter := r1.Intersect(r2)
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - interArea
	if union <= 0 {
		return 0
	}
	return float32(interArea) / float32(union)
}
