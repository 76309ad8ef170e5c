/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package middlewares

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fitai/fitai-scan-service/pkg/web"
)

func TestRecover(t *testing.T) {
	handler := web.Handler(Recover(func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
		panic("boom")
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after a panic, got %d", recorder.Code)
	}
}

func TestBodylimiter(t *testing.T) {
	previous := MaxBodyBytes
	MaxBodyBytes = 8
	defer func() { MaxBodyBytes = previous }()

	var readErr error
	handler := web.Handler(Bodylimiter(func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
		_, readErr = ioutil.ReadAll(request.Body)
		web.Respond(ctx, writer, nil, http.StatusNoContent)
		return nil
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	if readErr == nil {
		t.Error("expected the oversized body to fail")
	}
}

func TestCORS(t *testing.T) {
	handler := web.Handler(Logger(CORS("*", func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
		web.Respond(ctx, writer, "ok", http.StatusOK)
		return nil
	})))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Origin", "http://localhost:5173")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected allow origin header, got %v", recorder.Header())
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, preflight)
	if !strings.Contains(recorder.Header().Get("Access-Control-Allow-Methods"), http.MethodPost) {
		t.Errorf("expected allowed methods on preflight, got %v", recorder.Header())
	}
	if recorder.Code != http.StatusOK || recorder.Body.Len() != 0 {
		t.Errorf("preflight must be answered without calling the handler, got %d %q", recorder.Code, recorder.Body.String())
	}
}
