/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package webserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fitai/fitai-scan-service/app/analysis"
	"github.com/fitai/fitai-scan-service/app/chat"
	"github.com/fitai/fitai-scan-service/app/export"
	"github.com/fitai/fitai-scan-service/app/profile"
	"github.com/fitai/fitai-scan-service/pkg/capture"
	"github.com/fitai/fitai-scan-service/pkg/web"
)

// Profiles is the user data store behind the form and analysis routes
type Profiles interface {
	SaveForm(ctx context.Context, form profile.Document) (profile.Document, error)
	AttachCameraResults(ctx context.Context, results profile.Document) ([]string, error)
	Get(ctx context.Context) (profile.Document, error)
}

// Assistant answers chat messages and keeps the conversation
type Assistant interface {
	Reply(ctx context.Context, message string) (string, error)
	History() []chat.Message
	ClearHistory()
}

// Handler represents the API method handler set.
type Handler struct {
	ServiceName string
	// Context outlives single requests; capture sessions run under it
	Context   context.Context
	Profiles  Profiles
	Assistant Assistant
	Capture   Capture
	// Archive stores metrics documents posted to /api/receiveMetrics
	Archive     export.Archive
	ProfileName string
	ResultsFile string
	CORSOrigin  string

	now func() time.Time
}

type formResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	Filename      string   `json:"filename,omitempty"`
	ID            string   `json:"id,omitempty"`
	UpdatedFields []string `json:"updatedFields,omitempty"`
}

type analysisResponse struct {
	Success  bool               `json:"success"`
	Analysis *analysis.Analysis `json:"analysis"`
}

type analysisError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type historyResponse struct {
	Messages []chat.Message `json:"messages"`
}

type metricsResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

type resultsRequest struct {
	Content string `json:"content"`
	Append  bool   `json:"append"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (handler *Handler) clock() time.Time {
	if handler.now != nil {
		return handler.now()
	}
	return time.Now()
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(request *http.Request, v interface{}) error {
	if request.Body == nil {
		return nil
	}
	if err := json.NewDecoder(request.Body).Decode(v); err != nil && err != io.EOF {
		return web.NewRequestError(http.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}
	return nil
}

// Index is used for Docker Healthcheck commands to indicate
// whether the http server is up and running to take requests
//nolint:unparam
func (handler *Handler) Index(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	web.Respond(ctx, writer, handler.ServiceName, http.StatusOK)
	return nil
}

// Options answers CORS preflight requests
//nolint:unparam
func (handler *Handler) Options(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	web.Respond(ctx, writer, nil, http.StatusOK)
	return nil
}

// ReceiveMetrics archives a capture or calibration document posted by an exporter
func (handler *Handler) ReceiveMetrics(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	var metrics capture.CaptureMetrics
	if err := decode(request, &metrics); err != nil {
		return err
	}
	if metrics.Method == "" {
		return web.NewRequestError(http.StatusBadRequest, "Metrics method is required")
	}

	data, err := export.Marshal(&metrics)
	if err != nil {
		return errors.Wrap(err, "unable to encode metrics")
	}
	filename := export.Filename(handler.clock())
	if err := handler.Archive.Write(ctx, filename, data); err != nil {
		return errors.Wrap(err, "unable to archive metrics")
	}

	if metrics.Method == capture.MethodAutoHold && metrics.MuscleEstimates != nil {
		results := profile.Document{
			"method":          metrics.Method,
			"muscleEstimates": metrics.MuscleEstimates,
			"captureTime":     metrics.Timestamp,
		}
		if metrics.ScaleCmPerPixel != nil {
			results["scaleCmPerPixel"] = *metrics.ScaleCmPerPixel
		}
		if _, err := handler.Profiles.AttachCameraResults(ctx, results); err != nil && errors.Cause(err) != profile.ErrNotFound {
			logrus.Errorf("unable to attach capture to profile: %v", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"Method":   "ReceiveMetrics",
		"Action":   metrics.Method,
		"Filename": filename,
	}).Info("metrics received")
	web.Respond(ctx, writer, metricsResponse{Success: true, Filename: filename}, http.StatusOK)
	return nil
}

// SaveFormData replaces the stored user data with the posted form
func (handler *Handler) SaveFormData(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	var form profile.Document
	if err := decode(request, &form); err != nil {
		return err
	}
	if len(form) == 0 {
		return web.NewRequestError(http.StatusBadRequest, "Form data is required")
	}

	doc, err := handler.Profiles.SaveForm(ctx, form)
	if err != nil {
		logrus.Errorf("unable to save form data: %v", err)
		return web.NewRequestError(http.StatusInternalServerError, "Failed to save form data")
	}

	web.Respond(ctx, writer, formResponse{
		Success:  true,
		Message:  "Form data saved successfully",
		Filename: handler.ProfileName,
		ID:       doc.String("id"),
	}, http.StatusOK)
	return nil
}

// UpdateFormWithCamera attaches camera results to the stored user data
func (handler *Handler) UpdateFormWithCamera(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	var body struct {
		CameraResults profile.Document `json:"cameraResults"`
	}
	if err := decode(request, &body); err != nil {
		return err
	}
	if len(body.CameraResults) == 0 {
		return web.NewRequestError(http.StatusBadRequest, "Camera results are required")
	}

	fields, err := handler.Profiles.AttachCameraResults(ctx, body.CameraResults)
	if errors.Cause(err) == profile.ErrNotFound {
		return web.NewRequestError(http.StatusNotFound, "No user data found. Please fill out the form first.")
	}
	if err != nil {
		logrus.Errorf("unable to update form data: %v", err)
		return web.NewRequestError(http.StatusInternalServerError, "Failed to update form data with camera results")
	}

	web.Respond(ctx, writer, formResponse{
		Success:       true,
		Message:       "Camera results added to user data successfully",
		Filename:      handler.ProfileName,
		UpdatedFields: fields,
	}, http.StatusOK)
	return nil
}

// FitnessAnalysis builds the analysis and plans from the stored user data
func (handler *Handler) FitnessAnalysis(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	doc, err := handler.Profiles.Get(ctx)
	if errors.Cause(err) == profile.ErrNotFound {
		return web.NewRequestError(http.StatusNotFound, "No user data found. Please complete the form and camera analysis first.")
	}
	if err != nil {
		return err
	}

	result, err := analysis.Analyze(doc)
	switch {
	case errors.Cause(err) == analysis.ErrIncompleteProfile:
		return web.NewRequestError(http.StatusBadRequest, "Height and weight are required for analysis")
	case err != nil:
		web.Respond(ctx, writer, analysisError{Error: "Failed to generate fitness analysis", Details: err.Error()}, http.StatusInternalServerError)
		return nil
	}

	web.Respond(ctx, writer, analysisResponse{Success: true, Analysis: result}, http.StatusOK)
	return nil
}

// Chat sends one message to the assistant
func (handler *Handler) Chat(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	var body chatRequest
	if err := decode(request, &body); err != nil {
		return err
	}
	message := strings.TrimSpace(body.Message)
	if message == "" {
		return web.NewRequestError(http.StatusBadRequest, "Message is required")
	}

	reply, err := handler.Assistant.Reply(ctx, message)
	switch {
	case errors.Cause(err) == chat.ErrNoAPIKey:
		return web.NewRequestError(http.StatusServiceUnavailable,
			"Missing API key. Please set your Gemini API key to enable the AI chat functionality.")
	case errors.Cause(err) == chat.ErrTimeout:
		return web.NewRequestError(http.StatusGatewayTimeout, "Sorry, I encountered an error: Request timeout. Please try again.")
	case err != nil:
		logrus.WithFields(logrus.Fields{
			"Method": "Chat",
			"Error":  err.Error(),
		}).Error("chat reply failed")
		return web.NewRequestError(http.StatusBadGateway, "Sorry, I encountered an error: "+err.Error())
	}

	web.Respond(ctx, writer, chatResponse{Response: reply}, http.StatusOK)
	return nil
}

// ChatHistory returns the stored conversation
//nolint:unparam
func (handler *Handler) ChatHistory(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	messages := handler.Assistant.History()
	if messages == nil {
		messages = []chat.Message{}
	}
	web.Respond(ctx, writer, historyResponse{Messages: messages}, http.StatusOK)
	return nil
}

// ClearChatHistory forgets the conversation
//nolint:unparam
func (handler *Handler) ClearChatHistory(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	handler.Assistant.ClearHistory()
	web.Respond(ctx, writer, nil, http.StatusNoContent)
	return nil
}

// WriteResults writes or appends plain text to the results file
func (handler *Handler) WriteResults(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	var body resultsRequest
	if err := decode(request, &body); err != nil {
		return err
	}
	if body.Content == "" {
		return web.NewRequestError(http.StatusBadRequest, "Content is required")
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	message := "Results written to results.txt"
	if body.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		message = "Form data appended to results.txt"
	}

	file, err := os.OpenFile(handler.ResultsFile, flags, 0644)
	if err == nil {
		_, err = file.WriteString(body.Content)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		logrus.Errorf("unable to write %s: %v", handler.ResultsFile, err)
		return web.NewRequestError(http.StatusInternalServerError, "Failed to write results.txt")
	}

	web.Respond(ctx, writer, messageResponse{Success: true, Message: message}, http.StatusOK)
	return nil
}
