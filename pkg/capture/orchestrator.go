/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

import (
	"context"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/fitai/fitai-scan-service/pkg/geometry"
	"github.com/fitai/fitai-scan-service/pkg/pose"
)

// DefaultNextURL is where the user continues after a capture
const DefaultNextURL = "/home"

// DefaultRetryInterval is one frame at 30 fps
const DefaultRetryInterval = time.Second / 30

var (
	// ErrSourceNotReady means no frame is available yet; the iteration is skipped
	ErrSourceNotReady = errors.New("frame source not ready")
	// ErrSessionActive is returned when a capture session is already running
	ErrSessionActive = errors.New("a capture session is already active")
	// ErrNotRunning is returned by operations that need an active session
	ErrNotRunning = errors.New("capture session is not running")
)

// Session status values
const (
	StatusIdle     = "idle"
	StatusStarting = "starting camera"
	StatusRunning  = "running"
	StatusError    = "error"
	StatusStopped  = "stopped"
)

// FrameSource supplies video frames. Read returns ErrSourceNotReady when no
// frame is available yet. Frames implementing io.Closer are closed after use.
type FrameSource interface {
	Open() error
	Read(ctx context.Context) (pose.Frame, error)
	Close() error
}

// Surface is the display the overlay is drawn on
type Surface interface {
	// Sync resizes the surface to its container and returns the current target.
	// It is called every frame and must be idempotent.
	Sync() geometry.RenderTarget
	Draw(frame pose.Frame, overlay Overlay) error
}

// Exporter delivers a metrics document
type Exporter interface {
	Export(ctx context.Context, metrics *CaptureMetrics) error
}

// Overlay is everything a Surface needs to render one frame
type Overlay struct {
	Snapshot  *pose.Snapshot
	Transform *geometry.Transform
	Box       geometry.Box
	Prompt    string
	Countdown *int
	InBox     bool
}

// Status is a point in time copy of the session state
type Status struct {
	SessionID     string          `json:"session_id,omitempty"`
	Status        string          `json:"status"`
	State         State           `json:"state"`
	Prompt        string          `json:"prompt"`
	Countdown     *int            `json:"countdown"`
	AccumulatedMs int64           `json:"accumulated_ms"`
	Calibration   *Calibration    `json:"calibration,omitempty"`
	LastMetrics   *CaptureMetrics `json:"last_metrics,omitempty"`
	Frames        int64           `json:"frames"`
}

// Options configures an Orchestrator
type Options struct {
	Source    FrameSource
	Estimator pose.Estimator
	Surface   Surface
	Exporter  Exporter
	// Now defaults to time.Now
	Now func() time.Time
	// OnComplete is invoked with the next page once a capture has been handed to the exporter
	OnComplete    func(nextURL string)
	NextURL       string
	KnownHeightCm float64
	// ExportTimeout bounds the detached export call
	ExportTimeout time.Duration
	// RetryInterval paces the loop after a frame could not be read, usually one frame period
	RetryInterval time.Duration
}

// Orchestrator drives the capture loop for one camera
type Orchestrator struct {
	source        FrameSource
	estimator     pose.Estimator
	surface       Surface
	exporter      Exporter
	now           func() time.Time
	onComplete    func(string)
	nextURL       string
	knownHeightCm float64
	exportTimeout time.Duration
	retryInterval time.Duration

	session *semaphore.Weighted

	mutex       sync.Mutex
	accumulator *Accumulator
	previous    *pose.Snapshot
	latest      *pose.Snapshot
	target      geometry.RenderTarget
	calibration *Calibration
	status      Status
	cancel      context.CancelFunc
	done        chan struct{}
	listeners   map[chan Status]struct{}
	draining    bool

	exports sync.WaitGroup
}

func NewOrchestrator(options Options) *Orchestrator {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.NextURL == "" {
		options.NextURL = DefaultNextURL
	}
	if options.KnownHeightCm <= 0 {
		options.KnownHeightCm = DefaultKnownHeightCm
	}
	if options.ExportTimeout <= 0 {
		options.ExportTimeout = 30 * time.Second
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = DefaultRetryInterval
	}
	return &Orchestrator{
		source:        options.Source,
		estimator:     options.Estimator,
		surface:       options.Surface,
		exporter:      options.Exporter,
		now:           options.Now,
		onComplete:    options.OnComplete,
		nextURL:       options.NextURL,
		knownHeightCm: options.KnownHeightCm,
		exportTimeout: options.ExportTimeout,
		retryInterval: options.RetryInterval,
		session:       semaphore.NewWeighted(1),
		accumulator:   NewAccumulator(),
		status:        Status{Status: StatusIdle, Prompt: PromptStepIntoView},
		listeners:     make(map[chan Status]struct{}),
	}
}

// Start opens the frame source and runs the loop in the background
func (orch *Orchestrator) Start(ctx context.Context) error {
	if !orch.session.TryAcquire(1) {
		logrus.Warn("unable to acquire capture session lock, a capture must already be running. skipping.")
		return ErrSessionActive
	}

	orch.mutex.Lock()
	orch.accumulator.Reset()
	orch.previous = nil
	orch.status = Status{
		SessionID:   uuid.New(),
		Status:      StatusStarting,
		Prompt:      PromptStarting,
		Calibration: orch.calibration,
	}
	orch.mutex.Unlock()
	orch.publish()

	if err := orch.source.Open(); err != nil {
		orch.mutex.Lock()
		orch.status.Status = StatusError
		orch.status.Prompt = "Camera error: " + err.Error()
		orch.mutex.Unlock()
		orch.publish()
		orch.session.Release(1)
		return errors.Wrap(err, "unable to open frame source")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	orch.mutex.Lock()
	orch.cancel = cancel
	orch.done = done
	orch.status.Status = StatusRunning
	orch.mutex.Unlock()
	orch.publish()

	logrus.WithFields(logrus.Fields{
		"Method":  "Start",
		"Session": orch.Status().SessionID,
	}).Info("capture session started")

	go func() {
		defer close(done)
		orch.Run(loopCtx)
	}()
	return nil
}

// Run executes iterations until ctx is cancelled. When no frame could be
// read the next attempt waits one retry interval, and a failure repeated
// back to back is logged once.
func (orch *Orchestrator) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("recovered from panic: %+v", r)
		}
	}()

	logrus.Debug("capture loop started")
	failing := false
	for {
		select {
		case <-ctx.Done():
			logrus.Debug("capture loop completed")
			return
		default:
		}

		_, err := orch.step(ctx)
		switch {
		case err == nil:
			if failing {
				logrus.Info("frame source recovered")
			}
			failing = false
			continue
		case errors.Cause(err) == ErrSourceNotReady:
			logrus.Trace("frame source not ready, skipping iteration")
		case !failing:
			logrus.Errorf("capture iteration failed: %+v", err)
			failing = true
		default:
			logrus.Debugf("capture iteration failed again: %v", err)
		}

		select {
		case <-ctx.Done():
		case <-time.After(orch.retryInterval):
		}
	}
}

// Stop cancels the loop, releases the source and clears all session state
func (orch *Orchestrator) Stop() error {
	orch.mutex.Lock()
	cancel, done := orch.cancel, orch.done
	orch.cancel, orch.done = nil, nil
	orch.mutex.Unlock()

	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	<-done

	safeClose(orch.source)

	orch.mutex.Lock()
	orch.accumulator.Reset()
	orch.previous = nil
	orch.latest = nil
	orch.calibration = nil
	orch.status = Status{Status: StatusStopped, Prompt: PromptStopped}
	orch.mutex.Unlock()
	orch.publish()

	orch.session.Release(1)
	logrus.WithField("Method", "Stop").Info("capture session stopped")
	return nil
}

// Step runs a single iteration and reports whether it triggered a capture.
// A frame source that is not ready yet skips the iteration without error.
func (orch *Orchestrator) Step(ctx context.Context) (bool, error) {
	fired, err := orch.step(ctx)
	if errors.Cause(err) == ErrSourceNotReady {
		return false, nil
	}
	return fired, err
}

func (orch *Orchestrator) step(ctx context.Context) (bool, error) {
	frame, err := orch.source.Read(ctx)
	if err != nil {
		if errors.Cause(err) == ErrSourceNotReady || ctx.Err() != nil {
			return false, ErrSourceNotReady
		}
		return false, errors.Wrap(err, "unable to read frame")
	}
	if closer, ok := frame.(io.Closer); ok {
		defer safeClose(closer)
	}

	snapshot, err := orch.estimator.EstimatePose(ctx, frame)
	if err != nil {
		logrus.Debugf("pose inference unavailable, skipping iteration: %v", err)
		return false, nil
	}

	frameW, frameH := frame.Size()
	if snapshot != nil && (snapshot.FrameWidth == 0 || snapshot.FrameHeight == 0) {
		snapshot.FrameWidth, snapshot.FrameHeight = frameW, frameH
	}

	target := orch.surface.Sync()
	transform := geometry.Cover(frameW, frameH, target)
	box := geometry.GuidanceBox(target)

	confident := IsConfident(snapshot)
	inBox := confident && IsCentered(snapshot, transform, box)
	now := orch.now()

	orch.mutex.Lock()
	fired := orch.accumulator.Update(Observation{
		InPosition:   inBox,
		Displacement: MaxDisplacement(orch.previous, snapshot),
		Threshold:    JitterThreshold(transform),
		Now:          now,
	})
	orch.previous = snapshot
	orch.latest = snapshot
	orch.target = target

	var countdown *int
	if remaining, ok := orch.accumulator.Remaining(); ok {
		countdown = &remaining
	}
	state := orch.accumulator.State()
	orch.status.State = state
	orch.status.Countdown = countdown
	orch.status.AccumulatedMs = orch.accumulator.Accumulated().Milliseconds()
	orch.status.Frames++
	if !fired && state != Triggered {
		orch.status.Prompt = Prompt(state, confident, inBox, orch.calibration != nil)
	}

	var metrics *CaptureMetrics
	if fired {
		orch.status.Prompt = PromptCaptured
		metrics = NewAutoHoldMetrics(snapshot, orch.calibration, orch.knownHeightCm, now)
		orch.status.LastMetrics = metrics
	}
	prompt := orch.status.Prompt
	orch.mutex.Unlock()

	if err := orch.surface.Draw(frame, Overlay{
		Snapshot:  snapshot,
		Transform: transform,
		Box:       box,
		Prompt:    prompt,
		Countdown: countdown,
		InBox:     inBox,
	}); err != nil {
		logrus.Debugf("unable to draw overlay: %v", err)
	}

	orch.publish()

	if fired {
		logrus.WithFields(logrus.Fields{
			"Method": "Step",
			"Action": "Capture",
		}).Info("subject held still, capture triggered")
		orch.dispatch(metrics)
	}
	return fired, nil
}

// CalibrateCard applies a card based scale and exports it
func (orch *Orchestrator) CalibrateCard() Calibration {
	orch.mutex.Lock()
	calibration := CalibrateCard(orch.target)
	orch.calibration = &calibration
	orch.status.Calibration = &calibration
	orch.status.Prompt = "Calibrated using card (approx)."
	orch.mutex.Unlock()

	orch.publish()
	orch.dispatch(calibration.Metrics(orch.knownHeightCm, orch.now()))
	return calibration
}

// CalibrateHeight derives the scale from the latest pose and a known height
func (orch *Orchestrator) CalibrateHeight(knownHeightCm float64) (Calibration, error) {
	orch.mutex.Lock()
	if knownHeightCm > 0 {
		orch.knownHeightCm = knownHeightCm
	}
	calibration, err := CalibrateHeight(orch.latest, orch.knownHeightCm)
	if err != nil {
		orch.mutex.Unlock()
		return Calibration{}, err
	}
	orch.calibration = &calibration
	orch.status.Calibration = &calibration
	orch.status.Prompt = "Calibrated by height"
	height := orch.knownHeightCm
	orch.mutex.Unlock()

	orch.publish()
	orch.dispatch(calibration.Metrics(height, orch.now()))
	return calibration, nil
}

// Status returns a copy of the current session state
func (orch *Orchestrator) Status() Status {
	orch.mutex.Lock()
	defer orch.mutex.Unlock()
	return orch.status
}

// Subscribe registers for status updates. The returned func unsubscribes.
// Slow subscribers miss updates rather than blocking the loop.
func (orch *Orchestrator) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 8)
	orch.mutex.Lock()
	orch.listeners[ch] = struct{}{}
	orch.mutex.Unlock()

	return ch, func() {
		orch.mutex.Lock()
		if _, ok := orch.listeners[ch]; ok {
			delete(orch.listeners, ch)
			close(ch)
		}
		orch.mutex.Unlock()
	}
}

func (orch *Orchestrator) publish() {
	orch.mutex.Lock()
	defer orch.mutex.Unlock()
	for ch := range orch.listeners {
		select {
		case ch <- orch.status:
		default:
		}
	}
}

// Wait stops accepting new exports and blocks until the detached ones have finished
func (orch *Orchestrator) Wait() {
	orch.mutex.Lock()
	orch.draining = true
	orch.mutex.Unlock()

	orch.exports.Wait()
}

// dispatch hands metrics to the exporter without blocking the caller
func (orch *Orchestrator) dispatch(metrics *CaptureMetrics) {
	orch.mutex.Lock()
	if orch.draining {
		orch.mutex.Unlock()
		logrus.Warnf("shutting down, dropping %s metrics", metrics.Method)
		return
	}
	if orch.exporter != nil {
		orch.exports.Add(1)
	}
	orch.mutex.Unlock()

	if orch.exporter == nil {
		logrus.Warn("no metrics exporter configured, dropping capture")
	} else {
		go func() {
			defer orch.exports.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.Errorf("recovered from panic: %+v", r)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), orch.exportTimeout)
			defer cancel()
			if err := orch.exporter.Export(ctx, metrics); err != nil {
				logrus.Warnf("metrics export failed (%s): %v", metrics.Method, err)
			}
		}()
	}

	if orch.onComplete != nil {
		orch.onComplete(orch.nextURL)
	}
}

func safeClose(c io.Closer) {
	if c == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("recovered from panic: %+v", r)
		}
	}()

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debugf("closing %v", reflect.TypeOf(c))
	}

	if err := c.Close(); err != nil {
		logrus.Errorf("error while attempting to close %v: %v", reflect.TypeOf(c), err)
	}
}
