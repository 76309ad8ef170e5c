/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package camera

import (
	"github.com/rcrowley/go-metrics"
)

// samples kept per stage; the decay favours the last few seconds of video
const (
	sampleSize  = 256
	sampleAlpha = 0.015
)

// stageTiming is a millisecond latency of one stage of the frame pipeline.
// Values land in the default registry so they are reported with the other telemetry.
type stageTiming struct {
	histogram metrics.Histogram
	last      int64
}

func newStageTiming(name string) *stageTiming {
	return &stageTiming{
		histogram: metrics.GetOrRegisterHistogram("fitai-scan-service.Camera."+name, nil,
			metrics.NewExpDecaySample(sampleSize, sampleAlpha)),
	}
}

func (timing *stageTiming) observe(millis int64) {
	if millis < 0 {
		return
	}
	timing.last = millis
	timing.histogram.Update(millis)
}

func (timing *stageTiming) mean() float64 {
	return timing.histogram.Mean()
}

// perSecond converts a frame interval in milliseconds to frames per second
func perSecond(millis float64) float64 {
	if millis <= 0 {
		return 0
	}
	return 1000.0 / millis
}
