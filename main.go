/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"github.com/fitai/fitai-scan-service/app/chat"
	"github.com/fitai/fitai-scan-service/app/config"
	"github.com/fitai/fitai-scan-service/app/export"
	"github.com/fitai/fitai-scan-service/app/knowledge"
	"github.com/fitai/fitai-scan-service/app/profile"
	"github.com/fitai/fitai-scan-service/app/webserver"
	"github.com/fitai/fitai-scan-service/pkg/camera"
	"github.com/fitai/fitai-scan-service/pkg/capture"
	"github.com/fitai/fitai-scan-service/pkg/middlewares"
	"github.com/fitai/fitai-scan-service/pkg/pose/yolo"
)

const (
	windowTitle    = "FitAI Scan"
	resultsFile    = "results.txt"
	receivedFolder = "received"
)

func main() {
	mConfigurationError := metrics.GetOrRegisterGauge("fitai-scan-service.Main.ConfigurationError", nil)
	mDatabaseError := metrics.GetOrRegisterGauge("fitai-scan-service.Main.DatabaseError", nil)
	mModelError := metrics.GetOrRegisterGauge("fitai-scan-service.Main.ModelError", nil)
	mStorageError := metrics.GetOrRegisterGauge("fitai-scan-service.Main.StorageError", nil)

	// Load config variables
	err := config.InitConfig()
	fatalErrorHandler("unable to load configuration variables", err, &mConfigurationError)

	setLoggingLevel(config.AppConfig.LoggingLevel)

	// Initialize metrics reporting
	initMetrics()

	log.WithFields(log.Fields{
		"Method": "main",
		"Action": "Start",
	}).Info("Starting FitAI Scan Service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	profiles, err := profile.Open(config.AppConfig.DatabaseFile)
	fatalErrorHandler("unable to open user data store", err, &mDatabaseError)
	defer closeOnExit("user data store", profiles)

	knowledgeBase, err := knowledge.New(ctx, profiles.DB())
	fatalErrorHandler("unable to prepare knowledge base", err, &mDatabaseError)

	gemini, err := chat.NewGemini(ctx, chat.GeminiOptions{
		APIKey:          config.AppConfig.GeminiAPIKey,
		BaseURL:         config.AppConfig.GeminiBaseURL,
		Model:           config.AppConfig.GeminiModel,
		Temperature:     config.AppConfig.GeminiTemperature,
		MaxOutputTokens: config.AppConfig.GeminiMaxOutputTokens,
		Timeout:         seconds(config.AppConfig.ChatTimeoutSeconds),
	})
	fatalErrorHandler("unable to create gemini client", err, &mConfigurationError)
	if config.AppConfig.GeminiAPIKey == "" {
		log.Warn("geminiApiKey is not set, chat requests will be refused")
	}
	assistant := chat.NewAssistant(gemini, knowledgeBase)

	yoloConfig := yolo.DefaultConfig()
	yoloConfig.InputSize = config.AppConfig.PoseInputSize
	yoloConfig.ConfThreshold = float32(config.AppConfig.PoseConfidenceThreshold)
	yoloConfig.IOUThreshold = float32(config.AppConfig.PoseIoUThreshold)
	estimator, err := camera.NewEstimator(config.AppConfig.PoseModelFile, yoloConfig)
	fatalErrorHandler("unable to load pose model", err, &mModelError)
	defer closeOnExit("pose model", estimator)

	source := camera.NewVideoSource(camera.SourceOptions{
		Device:     config.AppConfig.VideoDevice,
		Width:      config.AppConfig.VideoResolutionWidth,
		Height:     config.AppConfig.VideoResolutionHeight,
		FPS:        float64(config.AppConfig.VideoCaptureFps),
		FOURCC:     config.AppConfig.VideoCaptureFOURCC,
		BufferSize: config.AppConfig.VideoCaptureBufferSize,
	})

	var orchestrator *capture.Orchestrator
	display := camera.NewDisplay(camera.DisplayOptions{
		Title:      windowTitle,
		Width:      config.AppConfig.VideoResolutionWidth,
		Height:     config.AppConfig.VideoResolutionHeight,
		LiveView:   config.AppConfig.LiveView,
		Fullscreen: config.AppConfig.FullscreenView,
		DebugStats: config.AppConfig.ShowVideoDebugStats,
		OnQuit: func() {
			if err := orchestrator.Stop(); err != nil {
				log.Debugf("stop from live view: %v", err)
			}
		},
	})
	defer closeOnExit("display", display)

	exportTimeout := seconds(config.AppConfig.ExportTimeoutSeconds)
	var exporter capture.Exporter = export.NewExporter(
		export.DirArchive{Dir: config.AppConfig.MetricsDir},
		config.AppConfig.MetricsEndpoint,
		exportTimeout,
	)
	if config.AppConfig.SaveSnapshots {
		exporter = &camera.SnapshotExporter{Next: exporter, Display: display, Dir: config.AppConfig.MetricsDir}
	}

	received := export.MultiArchive{export.DirArchive{Dir: filepath.Join(config.AppConfig.MetricsDir, receivedFolder)}}
	if config.AppConfig.GCSBucket != "" {
		bucket, err := export.NewGCSArchive(ctx, config.AppConfig.GCSBucket)
		fatalErrorHandler("unable to connect to cloud storage", err, &mStorageError)
		defer closeOnExit("cloud storage", bucket)
		received = append(received, bucket)
	}

	orchestrator = capture.NewOrchestrator(capture.Options{
		Source:        source,
		Estimator:     estimator,
		Surface:       display,
		Exporter:      exporter,
		KnownHeightCm: config.AppConfig.KnownHeightCm,
		ExportTimeout: exportTimeout,
		RetryInterval: frameInterval(config.AppConfig.VideoCaptureFps),
		OnComplete: func(nextURL string) {
			log.WithFields(log.Fields{
				"Method": "main",
				"Action": "CaptureComplete",
				"Next":   nextURL,
			}).Info("capture handed to exporter")
		},
	})

	handler := &webserver.Handler{
		ServiceName: config.AppConfig.ServiceName,
		Context:     ctx,
		Profiles:    profiles,
		Assistant:   assistant,
		Capture:     orchestrator,
		Archive:     received,
		ProfileName: config.AppConfig.DatabaseFile,
		ResultsFile: resultsFile,
		CORSOrigin:  config.AppConfig.CORSOrigin,
	}

	middlewares.MaxBodyBytes = config.AppConfig.MaxBodyBytes
	corsOrigin := ""
	if config.AppConfig.EnableCORS {
		corsOrigin = config.AppConfig.CORSOrigin
	}

	server := &http.Server{
		Addr:    ":" + config.AppConfig.Port,
		Handler: webserver.NewRouter(handler, corsOrigin),
	}

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		<-signals

		log.WithField("Method", "main").Info("shutting down")
		if err := orchestrator.Stop(); err != nil && err != capture.ErrNotRunning {
			log.Errorf("unable to stop capture: %v", err)
		}
		orchestrator.Wait()
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("unable to shut down web server: %v", err)
		}
	}()

	log.WithFields(log.Fields{
		"Method": "main",
		"Port":   config.AppConfig.Port,
	}).Info("listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		fatalErrorHandler("web server failed", err, nil)
	}

	log.WithField("Method", "main").Info("Completed.")
}

func initMetrics() {
	// periodically dump the registry to the log
	if config.AppConfig.TelemetryLogInterval > 0 {
		go metrics.Log(
			metrics.DefaultRegistry,
			seconds(config.AppConfig.TelemetryLogInterval),
			log.StandardLogger(),
		)
	}
}
