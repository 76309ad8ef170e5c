/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package webserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fitai/fitai-scan-service/pkg/middlewares"
	"github.com/fitai/fitai-scan-service/pkg/web"
)

// Route struct holds attributes to declare routes
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc web.Handler
}

// Routes lists every endpoint served by handler
func Routes(handler *Handler) []Route {
	routes := []Route{
		//swagger:operation GET / default Healthcheck
		//
		// Healthcheck Endpoint
		//
		// Endpoint that is used to determine if the application is ready to take web requests
		//
		// ---
		// produces:
		// - application/json
		//
		// responses:
		//   '200':
		//     description: OK
		//
		{"Index", http.MethodGet, "/", handler.Index},
		{"ReceiveMetrics", http.MethodPost, "/api/receiveMetrics", handler.ReceiveMetrics},
		{"SaveFormData", http.MethodPost, "/api/save-form-data", handler.SaveFormData},
		{"UpdateFormWithCamera", http.MethodPost, "/api/update-form-with-camera", handler.UpdateFormWithCamera},
		{"FitnessAnalysis", http.MethodPost, "/api/fitness-analysis", handler.FitnessAnalysis},
		{"WriteResults", http.MethodPost, "/api/write-results", handler.WriteResults},
		{"Chat", http.MethodPost, "/api/chat", handler.Chat},
		{"ChatHistory", http.MethodGet, "/api/chat/history", handler.ChatHistory},
		{"ClearChatHistory", http.MethodDelete, "/api/chat/history", handler.ClearChatHistory},
		{"StartCapture", http.MethodPost, "/capture/start", handler.StartCapture},
		{"StopCapture", http.MethodPost, "/capture/stop", handler.StopCapture},
		{"CaptureStatus", http.MethodGet, "/capture/status", handler.CaptureStatus},
		{"CalibrateCard", http.MethodPost, "/capture/calibrate/card", handler.CalibrateCard},
		{"CalibrateHeight", http.MethodPost, "/capture/calibrate/height", handler.CalibrateHeight},
		{"CaptureSocket", http.MethodGet, "/ws/capture", handler.CaptureSocket},
	}

	// preflight for everything a browser may post or delete
	var options []Route
	seen := map[string]bool{}
	for _, route := range routes {
		if route.Method == http.MethodGet || seen[route.Pattern] {
			continue
		}
		seen[route.Pattern] = true
		options = append(options, Route{"Options" + route.Name, http.MethodOptions, route.Pattern, handler.Options})
	}
	return append(routes, options...)
}

// NewRouter creates the routes for handler. CORS headers are added when corsOrigin is not empty.
func NewRouter(handler *Handler, corsOrigin string) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	for _, route := range Routes(handler) {

		var h = route.HandlerFunc
		h = middlewares.Recover(h)
		h = middlewares.Logger(h)
		h = middlewares.Bodylimiter(h)
		if corsOrigin != "" {
			h = middlewares.CORS(corsOrigin, h)
		}

		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(h)
	}

	return router
}
