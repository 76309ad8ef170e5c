/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/fitai/fitai-scan-service/pkg/geometry"
	"github.com/fitai/fitai-scan-service/pkg/pose"
)

type fakeFrame struct {
	width, height int
	closed        *int
}

func (frame fakeFrame) Size() (int, int) {
	return frame.width, frame.height
}

func (frame fakeFrame) Close() error {
	if frame.closed != nil {
		*frame.closed++
	}
	return nil
}

type fakeSource struct {
	OpenFunc  func() error
	ReadFunc  func(ctx context.Context) (pose.Frame, error)
	CloseFunc func() error
}

func (source *fakeSource) Open() error {
	if source.OpenFunc != nil {
		return source.OpenFunc()
	}
	return nil
}

func (source *fakeSource) Read(ctx context.Context) (pose.Frame, error) {
	return source.ReadFunc(ctx)
}

func (source *fakeSource) Close() error {
	if source.CloseFunc != nil {
		return source.CloseFunc()
	}
	return nil
}

type fakeEstimator struct {
	EstimatePoseFunc func(ctx context.Context, frame pose.Frame) (*pose.Snapshot, error)
}

func (estimator *fakeEstimator) EstimatePose(ctx context.Context, frame pose.Frame) (*pose.Snapshot, error) {
	return estimator.EstimatePoseFunc(ctx, frame)
}

type fakeSurface struct {
	syncs    int
	overlays []Overlay
}

func (surface *fakeSurface) Sync() geometry.RenderTarget {
	surface.syncs++
	return canvasTarget
}

func (surface *fakeSurface) Draw(frame pose.Frame, overlay Overlay) error {
	surface.overlays = append(surface.overlays, overlay)
	return nil
}

type recordingExporter struct {
	mutex   sync.Mutex
	metrics []*CaptureMetrics
	err     error
}

func (exporter *recordingExporter) Export(ctx context.Context, metrics *CaptureMetrics) error {
	exporter.mutex.Lock()
	defer exporter.mutex.Unlock()
	exporter.metrics = append(exporter.metrics, metrics)
	return exporter.err
}

func (exporter *recordingExporter) count() int {
	exporter.mutex.Lock()
	defer exporter.mutex.Unlock()
	return len(exporter.metrics)
}

type fakeClock struct {
	now time.Time
}

func (clock *fakeClock) Now() time.Time {
	return clock.now
}

func frameSource() *fakeSource {
	return &fakeSource{
		ReadFunc: func(ctx context.Context) (pose.Frame, error) {
			return fakeFrame{width: frameWidth, height: frameHeight}, nil
		},
	}
}

func poseEstimator(snapshot func() *pose.Snapshot) *fakeEstimator {
	return &fakeEstimator{
		EstimatePoseFunc: func(ctx context.Context, frame pose.Frame) (*pose.Snapshot, error) {
			return snapshot(), nil
		},
	}
}

func TestOrchestratorHoldStillEndToEnd(t *testing.T) {
	clock := &fakeClock{now: epoch}
	exporter := &recordingExporter{}
	surface := &fakeSurface{}
	var nextURLs []string

	orch := NewOrchestrator(Options{
		Source:     frameSource(),
		Estimator:  poseEstimator(standingPose),
		Surface:    surface,
		Exporter:   exporter,
		Now:        clock.Now,
		OnComplete: func(nextURL string) { nextURLs = append(nextURLs, nextURL) },
	})

	step := func(frames int) int {
		fired := 0
		for i := 0; i < frames; i++ {
			ok, err := orch.Step(context.Background())
			if err != nil {
				t.Fatalf("unexpected step error: %v", err)
			}
			if ok {
				fired++
			}
			clock.now = clock.now.Add(20 * time.Millisecond)
		}
		return fired
	}

	if fired := step(50); fired != 0 {
		t.Fatalf("expected no trigger within the first second, got %d", fired)
	}
	if orch.Status().State != Accumulating {
		t.Fatalf("expected accumulating state, got %v", orch.Status().State)
	}

	if fired := step(150); fired != 1 {
		t.Fatalf("expected exactly one trigger, got %d", fired)
	}
	orch.Wait()

	if exporter.count() != 1 {
		t.Fatalf("expected exactly one metrics document, got %d", exporter.count())
	}
	metrics := exporter.metrics[0]
	if metrics.Method != MethodAutoHold || metrics.MuscleEstimates == nil || metrics.PoseSummary == nil {
		t.Errorf("unexpected metrics %+v", metrics)
	}
	if metrics.ScaleCmPerPixel != nil || metrics.KnownHeightCm != nil {
		t.Error("uncalibrated capture should not carry a scale")
	}
	if metrics.PoseSummary.Nose == nil || metrics.PoseSummary.Nose.X != 640 {
		t.Errorf("unexpected pose summary %+v", metrics.PoseSummary)
	}
	if len(nextURLs) != 1 || nextURLs[0] != DefaultNextURL {
		t.Errorf("expected one continuation to %s, got %v", DefaultNextURL, nextURLs)
	}

	status := orch.Status()
	if status.State != Triggered || status.Prompt != PromptCaptured || *status.Countdown != 0 {
		t.Errorf("unexpected final status %+v", status)
	}
	if surface.syncs != 200 || len(surface.overlays) != 200 {
		t.Errorf("expected a sync and draw every frame, got %d and %d", surface.syncs, len(surface.overlays))
	}
}

func TestOrchestratorSkipsWhenSourceNotReady(t *testing.T) {
	estimated := 0
	orch := NewOrchestrator(Options{
		Source: &fakeSource{ReadFunc: func(ctx context.Context) (pose.Frame, error) {
			return nil, errors.Wrap(ErrSourceNotReady, "warming up")
		}},
		Estimator: &fakeEstimator{EstimatePoseFunc: func(ctx context.Context, frame pose.Frame) (*pose.Snapshot, error) {
			estimated++
			return nil, nil
		}},
		Surface: &fakeSurface{},
	})

	fired, err := orch.Step(context.Background())
	if fired || err != nil || estimated != 0 {
		t.Fatalf("expected a silent skip, got %v %v %d", fired, err, estimated)
	}
}

func TestOrchestratorSkipsWhenInferenceFails(t *testing.T) {
	closed := 0
	surface := &fakeSurface{}
	orch := NewOrchestrator(Options{
		Source: &fakeSource{ReadFunc: func(ctx context.Context) (pose.Frame, error) {
			return fakeFrame{width: frameWidth, height: frameHeight, closed: &closed}, nil
		}},
		Estimator: &fakeEstimator{EstimatePoseFunc: func(ctx context.Context, frame pose.Frame) (*pose.Snapshot, error) {
			return nil, errors.New("model not loaded")
		}},
		Surface: surface,
	})

	if _, err := orch.Step(context.Background()); err != nil {
		t.Fatalf("inference failure should not be an error: %v", err)
	}
	if len(surface.overlays) != 0 {
		t.Error("skipped iteration should not draw")
	}
	if closed != 1 {
		t.Errorf("expected frame to be closed once, got %d", closed)
	}
}

func TestOrchestratorLeavingBoxResetsCountdown(t *testing.T) {
	clock := &fakeClock{now: epoch}
	current := standingPose()
	orch := NewOrchestrator(Options{
		Source:    frameSource(),
		Estimator: poseEstimator(func() *pose.Snapshot { return current }),
		Surface:   &fakeSurface{},
		Exporter:  &recordingExporter{},
		Now:       clock.Now,
	})

	for i := 0; i < 20; i++ {
		orch.Step(context.Background())
		clock.now = clock.now.Add(50 * time.Millisecond)
	}
	if orch.Status().AccumulatedMs == 0 {
		t.Fatal("expected accumulated time while holding still")
	}

	current = shifted(standingPose(), 500, 0)
	orch.Step(context.Background())
	status := orch.Status()
	if status.State != Idle || status.AccumulatedMs != 0 || status.Countdown != nil {
		t.Errorf("expected reset after leaving the box, got %+v", status)
	}
	if status.Prompt != PromptMoveToCenter {
		t.Errorf("unexpected prompt %q", status.Prompt)
	}

	current = nil
	orch.Step(context.Background())
	if orch.Status().Prompt != PromptStepIntoView {
		t.Errorf("unexpected prompt %q", orch.Status().Prompt)
	}
}

func TestOrchestratorCalibrationIsAttached(t *testing.T) {
	clock := &fakeClock{now: epoch}
	exporter := &recordingExporter{}
	orch := NewOrchestrator(Options{
		Source:        frameSource(),
		Estimator:     poseEstimator(standingPose),
		Surface:       &fakeSurface{},
		Exporter:      exporter,
		Now:           clock.Now,
		KnownHeightCm: 180,
	})

	orch.Step(context.Background())
	calibration, err := orch.CalibrateHeight(0)
	if err != nil {
		t.Fatalf("unexpected calibration error: %v", err)
	}
	if calibration.Method != MethodHeight || calibration.KnownHeightCm != 180 {
		t.Errorf("unexpected calibration %+v", calibration)
	}
	if orch.Status().Prompt != "Calibrated by height" {
		t.Errorf("unexpected prompt %q", orch.Status().Prompt)
	}

	for i := 0; i < 200; i++ {
		clock.now = clock.now.Add(20 * time.Millisecond)
		orch.Step(context.Background())
	}
	orch.Wait()

	if exporter.count() != 2 {
		t.Fatalf("expected calibration and capture documents, got %d", exporter.count())
	}
	var capture *CaptureMetrics
	for _, m := range exporter.metrics {
		if m.Method == MethodAutoHold {
			capture = m
		}
	}
	if capture == nil || capture.ScaleCmPerPixel == nil || *capture.ScaleCmPerPixel != calibration.ScaleCmPerPixel {
		t.Fatalf("capture should carry the calibration scale, got %+v", capture)
	}
	if capture.KnownHeightCm == nil || *capture.KnownHeightCm != 180 {
		t.Errorf("capture should carry the known height, got %v", capture.KnownHeightCm)
	}
}

func TestOrchestratorCalibrateHeightWithoutSubject(t *testing.T) {
	orch := NewOrchestrator(Options{Source: frameSource(), Surface: &fakeSurface{}})
	if _, err := orch.CalibrateHeight(170); err != ErrNoSubject {
		t.Errorf("expected ErrNoSubject, got %v", err)
	}
}

func TestOrchestratorStartStop(t *testing.T) {
	opened, closed := 0, 0
	source := &fakeSource{
		OpenFunc:  func() error { opened++; return nil },
		CloseFunc: func() error { closed++; return nil },
		ReadFunc: func(ctx context.Context) (pose.Frame, error) {
			time.Sleep(time.Millisecond)
			return nil, ErrSourceNotReady
		},
	}
	orch := NewOrchestrator(Options{Source: source, Estimator: poseEstimator(standingPose), Surface: &fakeSurface{}})

	updates, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := orch.Start(context.Background()); err != ErrSessionActive {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if status := orch.Status(); status.Status != StatusRunning || status.SessionID == "" {
		t.Fatalf("unexpected status %+v", status)
	}

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected a status update")
	}

	orch.CalibrateCard()
	if err := orch.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	status := orch.Status()
	if status.Status != StatusStopped || status.Prompt != PromptStopped || status.Calibration != nil {
		t.Errorf("stop should clear the session, got %+v", status)
	}
	if opened != 1 || closed != 1 {
		t.Errorf("expected one open and one close, got %d and %d", opened, closed)
	}
	if err := orch.Stop(); err != ErrNotRunning {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}

	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	orch.Stop()
}

func TestOrchestratorStartFailure(t *testing.T) {
	source := &fakeSource{OpenFunc: func() error { return errors.New("permission denied") }}
	orch := NewOrchestrator(Options{Source: source, Surface: &fakeSurface{}})

	if err := orch.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}
	status := orch.Status()
	if status.Status != StatusError || status.Prompt != "Camera error: permission denied" {
		t.Errorf("unexpected status %+v", status)
	}
	if !orch.session.TryAcquire(1) {
		t.Error("failed start should release the session")
	}
}

func TestOrchestratorExportFailureIsNonFatal(t *testing.T) {
	clock := &fakeClock{now: epoch}
	continued := false
	orch := NewOrchestrator(Options{
		Source:     frameSource(),
		Estimator:  poseEstimator(standingPose),
		Surface:    &fakeSurface{},
		Exporter:   &recordingExporter{err: errors.New("connection refused")},
		Now:        clock.Now,
		OnComplete: func(string) { continued = true },
	})

	for i := 0; i < 200; i++ {
		if _, err := orch.Step(context.Background()); err != nil {
			t.Fatalf("unexpected step error: %v", err)
		}
		clock.now = clock.now.Add(20 * time.Millisecond)
	}
	orch.Wait()
	if !continued {
		t.Error("user flow should continue even when export fails")
	}
}

func TestOrchestratorRunPacesFailedReads(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"device closed", errors.New("unable to read from webcam. device closed: 0")},
		{"not ready", ErrSourceNotReady},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reads := 0
			orch := NewOrchestrator(Options{
				Source: &fakeSource{ReadFunc: func(ctx context.Context) (pose.Frame, error) {
					reads++
					return nil, test.err
				}},
				Surface:       &fakeSurface{},
				RetryInterval: 10 * time.Millisecond,
			})

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			orch.Run(ctx)

			if reads < 1 || reads > 15 {
				t.Errorf("expected about one read per retry interval, got %d in 100ms", reads)
			}
		})
	}
}

func TestOrchestratorWaitRefusesNewExports(t *testing.T) {
	exporter := &recordingExporter{}
	continued := 0
	orch := NewOrchestrator(Options{
		Source:     frameSource(),
		Surface:    &fakeSurface{},
		Exporter:   exporter,
		OnComplete: func(string) { continued++ },
	})

	orch.CalibrateCard()
	orch.Wait()
	if exporter.count() != 1 || continued != 1 {
		t.Fatalf("expected the first calibration to export, got %d exports", exporter.count())
	}

	orch.CalibrateCard()
	orch.Wait()
	if exporter.count() != 1 || continued != 1 {
		t.Errorf("exports after shutdown began should be dropped, got %d", exporter.count())
	}
}
