/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func envFrom(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		value, ok := values[name]
		return value, ok
	}
}

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"port":                 "PORT",
		"videoCaptureFOURCC":   "VIDEO_CAPTURE_FOURCC",
		"enableCORS":           "ENABLE_CORS",
		"geminiApiKey":         "GEMINI_API_KEY",
		"usbCameraDeviceIndex": "USB_CAMERA_DEVICE_INDEX",
		"poseIouThreshold":     "POSE_IOU_THRESHOLD",
	}
	for path, want := range tests {
		if got := envName(path); got != want {
			t.Errorf("envName(%s) = %s, want %s", path, got, want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	dir, err := ioutil.TempDir("", "fitai-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	config, err := parseConfiguration(nil, envFrom(map[string]string{
		"METRICS_DIR": filepath.Join(dir, "metrics"),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AppConfig = variables{}
	if err := load(config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if AppConfig.Port != "8080" || AppConfig.VideoDevice != "0" || AppConfig.KnownHeightCm != 175 {
		t.Errorf("unexpected defaults %+v", AppConfig)
	}
	if AppConfig.MetricsEndpoint != "http://localhost:8080/api/receiveMetrics" {
		t.Errorf("unexpected metrics endpoint %s", AppConfig.MetricsEndpoint)
	}
	if AppConfig.GeminiModel != "gemini-2.5-flash" || AppConfig.ChatTimeoutSeconds != 30 {
		t.Errorf("unexpected chat defaults %+v", AppConfig)
	}
	if _, err := os.Stat(filepath.Join(dir, "metrics")); err != nil {
		t.Errorf("expected metrics dir to be created: %v", err)
	}
}

func TestLoadPriority(t *testing.T) {
	yamlFile := []byte(`
port: "9090"
serviceName: from-file
knownHeightCm: 182.5
liveView: true
ipCameraStreamUrl: rtsp://camera/stream
metricsDir: ""
`)
	config, err := parseConfiguration(yamlFile, envFrom(map[string]string{
		"SERVICE_NAME":             "from-env",
		"GEMINI_MAX_OUTPUT_TOKENS": "512",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AppConfig = variables{}
	if err := load(config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if AppConfig.ServiceName != "from-env" {
		t.Errorf("environment should win over the file, got %s", AppConfig.ServiceName)
	}
	if AppConfig.Port != "9090" || AppConfig.KnownHeightCm != 182.5 || !AppConfig.LiveView {
		t.Errorf("file values not applied: %+v", AppConfig)
	}
	if AppConfig.VideoDevice != "rtsp://camera/stream" {
		t.Errorf("expected the stream url as video device, got %s", AppConfig.VideoDevice)
	}
	if AppConfig.GeminiMaxOutputTokens != 512 {
		t.Errorf("expected env integer to parse, got %d", AppConfig.GeminiMaxOutputTokens)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"fourcc", map[string]string{"VIDEO_CAPTURE_FOURCC": "MJPEG"}},
		{"buffer", map[string]string{"VIDEO_CAPTURE_BUFFER_SIZE": "0"}},
		{"device", map[string]string{"USB_CAMERA_DEVICE_INDEX": "-1"}},
		{"input size", map[string]string{"POSE_INPUT_SIZE": "500"}},
		{"height", map[string]string{"KNOWN_HEIGHT_CM": "0"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.env["METRICS_DIR"] = ""
			config, err := parseConfiguration(nil, envFrom(test.env))
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			AppConfig = variables{}
			if err := load(config); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestParseConfigurationRejectsBadYaml(t *testing.T) {
	if _, err := parseConfiguration([]byte("port: [unclosed"), nil); err == nil {
		t.Error("expected a parse error")
	}
}
