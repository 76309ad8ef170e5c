/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	variables struct {
		ServiceName, LoggingLevel, Port               string
		TelemetryLogInterval                          int
		VideoDevice                                   string
		LiveView, FullscreenView, ShowVideoDebugStats bool
		VideoResolutionWidth, VideoResolutionHeight   int
		VideoCaptureFps                               int
		VideoCaptureFOURCC                            string
		VideoCaptureBufferSize                        int
		PoseModelFile                                 string
		PoseInputSize                                 int
		PoseConfidenceThreshold, PoseIoUThreshold     float64
		KnownHeightCm                                 float64
		MetricsEndpoint, MetricsDir                   string
		SaveSnapshots                                 bool
		ExportTimeoutSeconds                          int
		GCSBucket                                     string
		DatabaseFile                                  string
		GeminiAPIKey, GeminiModel, GeminiBaseURL      string
		GeminiTemperature                             float64
		GeminiMaxOutputTokens, ChatTimeoutSeconds     int
		MaxBodyBytes                                  int64
		EnableCORS                                    bool
		CORSOrigin                                    string
	}
)

// AppConfig exports all config variables
var AppConfig variables

// InitConfig loads application variables
func InitConfig() error {
	AppConfig = variables{}

	config, err := newConfiguration()
	if err != nil {
		return errors.Wrapf(err, "Unable to load config variables: %s", err.Error())
	}
	return load(config)
}

// nolint :gocyclo
func load(config *configuration) error {
	var err error

	AppConfig.ServiceName = getOrDefaultString(config, "serviceName", "FitAI Scan Service")
	AppConfig.LoggingLevel = getOrDefaultString(config, "loggingLevel", "info")
	AppConfig.Port = getOrDefaultString(config, "port", "8080")
	AppConfig.TelemetryLogInterval = getOrDefaultInt(config, "telemetryLogInterval", 0)

	AppConfig.LiveView = getOrDefaultBool(config, "liveView", false)
	AppConfig.FullscreenView = getOrDefaultBool(config, "fullscreenView", false)
	AppConfig.ShowVideoDebugStats = getOrDefaultBool(config, "showVideoDebugStats", false)
	AppConfig.VideoResolutionWidth = getOrDefaultInt(config, "videoResolutionWidth", 1280)
	AppConfig.VideoResolutionHeight = getOrDefaultInt(config, "videoResolutionHeight", 720)
	AppConfig.VideoCaptureFps = getOrDefaultInt(config, "videoCaptureFps", 30)
	AppConfig.VideoCaptureFOURCC = getOrDefaultString(config, "videoCaptureFOURCC", "MJPG")
	if len(AppConfig.VideoCaptureFOURCC) != 4 && AppConfig.VideoCaptureFOURCC != "" {
		return fmt.Errorf("videoCaptureFOURCC must be a four-letter string such as 'MJPG', or an empty-string to disable setting this property: \"\"")
	}
	AppConfig.VideoCaptureBufferSize = getOrDefaultInt(config, "videoCaptureBufferSize", 1)
	if AppConfig.VideoCaptureBufferSize < 1 {
		return fmt.Errorf("videoCaptureBufferSize must be a value greater than 0")
	}

	if AppConfig.VideoDevice, err = config.GetString("ipCameraStreamUrl"); err != nil {
		device := getOrDefaultInt(config, "usbCameraDeviceIndex", 0)
		if device < 0 {
			return fmt.Errorf("usbCameraDeviceIndex must not be negative")
		}
		AppConfig.VideoDevice = strconv.Itoa(device)
	}

	AppConfig.PoseModelFile = getOrDefaultString(config, "poseModelFile", "yolo11n-pose.onnx")
	AppConfig.PoseInputSize = getOrDefaultInt(config, "poseInputSize", 640)
	if AppConfig.PoseInputSize%32 != 0 || AppConfig.PoseInputSize <= 0 {
		return fmt.Errorf("poseInputSize must be a positive multiple of 32")
	}
	AppConfig.PoseConfidenceThreshold = getOrDefaultFloat64(config, "poseConfidenceThreshold", 0.45)
	AppConfig.PoseIoUThreshold = getOrDefaultFloat64(config, "poseIouThreshold", 0.5)

	AppConfig.KnownHeightCm = getOrDefaultFloat64(config, "knownHeightCm", 175)
	if AppConfig.KnownHeightCm <= 0 {
		return fmt.Errorf("knownHeightCm must be a value greater than 0")
	}

	AppConfig.MetricsEndpoint = getOrDefaultString(config, "metricsEndpoint",
		"http://localhost:"+AppConfig.Port+"/api/receiveMetrics")
	AppConfig.MetricsDir = getOrDefaultString(config, "metricsDir", "metrics")
	if AppConfig.MetricsDir != "" {
		if err = ensureWritable(AppConfig.MetricsDir); err != nil {
			return errors.Wrapf(err, "Unable to load config variables: %v", err)
		}
	}
	AppConfig.SaveSnapshots = getOrDefaultBool(config, "saveSnapshots", false)
	AppConfig.ExportTimeoutSeconds = getOrDefaultInt(config, "exportTimeoutSeconds", 10)
	AppConfig.GCSBucket = getOrDefaultString(config, "gcsBucket", "")

	AppConfig.DatabaseFile = getOrDefaultString(config, "databaseFile", "fitai.db")

	AppConfig.GeminiAPIKey = getOrDefaultString(config, "geminiApiKey", "")
	AppConfig.GeminiModel = getOrDefaultString(config, "geminiModel", "gemini-2.5-flash")
	AppConfig.GeminiBaseURL = getOrDefaultString(config, "geminiBaseUrl", "")
	AppConfig.GeminiTemperature = getOrDefaultFloat64(config, "geminiTemperature", 0.7)
	AppConfig.GeminiMaxOutputTokens = getOrDefaultInt(config, "geminiMaxOutputTokens", 2000)
	AppConfig.ChatTimeoutSeconds = getOrDefaultInt(config, "chatTimeoutSeconds", 30)

	AppConfig.MaxBodyBytes = int64(getOrDefaultInt(config, "maxBodyBytes", 1<<20))
	AppConfig.EnableCORS = getOrDefaultBool(config, "enableCORS", true)
	AppConfig.CORSOrigin = getOrDefaultString(config, "corsOrigin", "*")

	return nil
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe, err := ioutil.TempFile(dir, ".probe")
	if err != nil {
		return errors.Wrapf(err, "metricsDir %s is not writable", dir)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

func getOrDefaultFloat64(config *configuration, path string, defaultValue float64) float64 {
	value, err := config.GetFloat(path)
	if err != nil {
		logrus.Debugf("%s was missing from configuration, setting to default value of %v", path, defaultValue)
		return defaultValue
	}
	return value
}

func getOrDefaultInt(config *configuration, path string, defaultValue int) int {
	value, err := config.GetInt(path)
	if err != nil {
		logrus.Debugf("%s was missing from configuration, setting to default value of %v", path, defaultValue)
		return defaultValue
	}
	return value
}

func getOrDefaultBool(config *configuration, path string, defaultValue bool) bool {
	value, err := config.GetBool(path)
	if err != nil {
		logrus.Debugf("%s was missing from configuration, setting to default value of %v", path, defaultValue)
		return defaultValue
	}
	return value
}

func getOrDefaultString(config *configuration, path string, defaultValue string) string {
	value, err := config.GetString(path)
	if err != nil {
		logrus.Debugf("%s was missing from configuration, setting to default value of %v", path, defaultValue)
		return defaultValue
	}
	return value
}
