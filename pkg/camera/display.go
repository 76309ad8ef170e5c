/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package camera

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/fitai/fitai-scan-service/pkg/capture"
	"github.com/fitai/fitai-scan-service/pkg/geometry"
	"github.com/fitai/fitai-scan-service/pkg/pose"
)

const (
	font          = gocv.FontHersheySimplex
	fontScale     = 0.75
	fontThickness = 2
	textPadding   = 5
	yPadding      = 35

	skeletonMinScore = 0.3
	jointRadius      = 4
)

var (
	white      = color.RGBA{255, 255, 255, 0}
	green      = color.RGBA{0, 255, 0, 0}
	cyan       = color.RGBA{0, 255, 255, 0}
	statsColor = color.RGBA{255, 255, 0, 0}
)

// DisplayOptions configures the rendering surface
type DisplayOptions struct {
	Title      string
	Width      int
	Height     int
	LiveView   bool
	Fullscreen bool
	DebugStats bool
	// OnQuit is called when ESC or q is pressed in the live view
	OnQuit func()
}

// Display renders frames with the pose overlay into a fixed size canvas,
// optionally shown in a native window
type Display struct {
	options DisplayOptions

	mutex      sync.Mutex
	window     *gocv.Window
	canvas     gocv.Mat
	captured   gocv.Mat
	lastPrompt string

	read, process, interval *stageTiming
	prevMillis              int64
}

func NewDisplay(options DisplayOptions) *Display {
	display := &Display{
		options:  options,
		canvas:   gocv.NewMatWithSize(options.Height, options.Width, gocv.MatTypeCV8UC3),
		captured: gocv.NewMat(),
		read:     newStageTiming("ReadMs"),
		process:  newStageTiming("ProcessMs"),
		interval: newStageTiming("FrameIntervalMs"),
	}
	if options.LiveView {
		display.window = gocv.NewWindow(options.Title)
		display.window.ResizeWindow(options.Width, options.Height)
		if options.Fullscreen {
			display.window.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
		}
	}
	return display
}

// Sync returns the canvas size. The canvas never changes size once created.
func (display *Display) Sync() geometry.RenderTarget {
	return geometry.RenderTarget{
		CSSWidth:         float64(display.options.Width),
		CSSHeight:        float64(display.options.Height),
		DevicePixelRatio: 1,
	}
}

func (display *Display) Draw(f pose.Frame, overlay capture.Overlay) error {
	frame, ok := f.(*Frame)
	if !ok {
		return fmt.Errorf("unsupported frame type %T", f)
	}

	display.mutex.Lock()
	defer display.mutex.Unlock()

	display.cover(frame.Mat, overlay.Transform)

	boxColor := white
	if overlay.InBox {
		boxColor = green
	}
	box := overlay.Box
	gocv.Rectangle(&display.canvas, image.Rect(round(box.X), round(box.Y), round(box.X+box.W), round(box.Y+box.H)), boxColor, fontThickness)

	if overlay.Snapshot != nil && overlay.Transform != nil {
		display.skeleton(overlay.Snapshot, overlay.Transform)
	}

	gocv.PutText(&display.canvas, overlay.Prompt, image.Pt(textPadding, display.options.Height-textPadding*3), font, fontScale, white, fontThickness)
	if overlay.Countdown != nil && *overlay.Countdown > 0 {
		text := strconv.Itoa(*overlay.Countdown)
		size := gocv.GetTextSize(text, font, 4, 6)
		gocv.PutText(&display.canvas, text, image.Pt((display.options.Width-size.X)/2, (display.options.Height+size.Y)/2), font, 4, cyan, 6)
	}

	if display.options.DebugStats {
		display.stats(frame)
	}

	if overlay.Prompt == capture.PromptCaptured && display.lastPrompt != capture.PromptCaptured {
		safeClose(&display.captured)
		display.captured = display.canvas.Clone()
	}
	display.lastPrompt = overlay.Prompt

	if display.window != nil {
		display.window.IMShow(display.canvas)
		key := display.window.WaitKey(1)

		// ESC, Q, q
		if key == 27 || key == 'q' || key == 'Q' {
			logrus.Debugf("stopping video live view")
			safeClose(display.window)
			display.window = nil
			if display.options.OnQuit != nil {
				go display.options.OnQuit()
			}
		}
	}
	return nil
}

// Capture returns a copy of the canvas at the moment of the last capture.
// The caller owns the returned Mat.
func (display *Display) Capture() (gocv.Mat, bool) {
	display.mutex.Lock()
	defer display.mutex.Unlock()
	if display.captured.Empty() {
		return gocv.Mat{}, false
	}
	return display.captured.Clone(), true
}

func (display *Display) Close() error {
	display.mutex.Lock()
	defer display.mutex.Unlock()

	safeClose(display.window)
	display.window = nil
	safeClose(&display.canvas)
	safeClose(&display.captured)
	return nil
}

// cover scales src to fill the canvas and crops the overflow evenly
func (display *Display) cover(src gocv.Mat, transform *geometry.Transform) {
	if transform == nil {
		display.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))
		return
	}

	scaledW := int(math.Ceil(transform.FrameW * transform.Scale))
	scaledH := int(math.Ceil(transform.FrameH * transform.Scale))
	scaled := gocv.NewMat()
	defer safeClose(&scaled)
	gocv.Resize(src, &scaled, image.Pt(scaledW, scaledH), 0, 0, gocv.InterpolationLinear)

	x0, y0 := int(-transform.OffsetX), int(-transform.OffsetY)
	w := min(display.options.Width, scaledW-x0)
	h := min(display.options.Height, scaledH-y0)
	if w <= 0 || h <= 0 {
		return
	}

	from := scaled.Region(image.Rect(x0, y0, x0+w, y0+h))
	defer safeClose(&from)
	to := display.canvas.Region(image.Rect(0, 0, w, h))
	defer safeClose(&to)
	from.CopyTo(&to)
}

func (display *Display) skeleton(snapshot *pose.Snapshot, transform *geometry.Transform) {
	point := func(name pose.Name) (image.Point, bool) {
		kp, ok := snapshot.Get(name)
		if !ok || kp.Score < skeletonMinScore {
			return image.Point{}, false
		}
		x, y := transform.MapKeypoint(snapshot, kp)
		return image.Pt(round(x), round(y)), true
	}

	for _, bone := range pose.Skeleton {
		a, okA := point(bone[0])
		b, okB := point(bone[1])
		if okA && okB {
			gocv.Line(&display.canvas, a, b, cyan, fontThickness)
		}
	}
	for name := pose.Name(0); name < pose.NumKeypoints; name++ {
		if p, ok := point(name); ok {
			gocv.Circle(&display.canvas, p, jointRadius, green, -1)
		}
	}
}

func (display *Display) stats(frame *Frame) {
	if frame.readTS != 0 {
		display.read.observe(frame.readTS - frame.startTS)
	}
	if frame.processedTS != 0 {
		display.process.observe(frame.processedTS - frame.readTS)
	}
	now := unixMilliNow()
	if display.prevMillis != 0 {
		display.interval.observe(now - display.prevMillis)
	}
	display.prevMillis = now

	x2 := gocv.GetTextSize("Avg Process: 99.9", font, fontScale, fontThickness).X + textPadding*4
	lines := []struct {
		x    int
		text string
	}{
		{textPadding, "   Read: " + strconv.FormatInt(display.read.last, 10)},
		{textPadding, "Process: " + strconv.FormatInt(display.process.last, 10)},
		{textPadding, "    FPS: " + strconv.FormatFloat(perSecond(float64(display.interval.last)), 'f', 1, 64)},
		{x2, "   Avg Read: " + strconv.FormatFloat(display.read.mean(), 'f', 1, 64)},
		{x2, "Avg Process: " + strconv.FormatFloat(display.process.mean(), 'f', 1, 64)},
		{x2, "    Avg FPS: " + strconv.FormatFloat(perSecond(display.interval.mean()), 'f', 1, 64)},
	}
	for i, line := range lines {
		gocv.PutText(&display.canvas, line.text, image.Pt(line.x, yPadding*(i%3+1)), font, fontScale, statsColor, fontThickness)
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
