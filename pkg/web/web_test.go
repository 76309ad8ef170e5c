/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
)

func TestHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"request error", NewRequestError(http.StatusBadRequest, "Form data is required"), http.StatusBadRequest, `{"error":"Form data is required"}`},
		{"wrapped request error", errors.Wrap(NewRequestError(http.StatusNotFound, "missing"), "lookup"), http.StatusNotFound, `{"error":"missing"}`},
		{"unexpected error", errors.New("disk full"), http.StatusInternalServerError, `{"error":"Internal Server Error"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			handler := Handler(func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
				return test.err
			})
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

			if recorder.Code != test.status {
				t.Errorf("expected status %d, got %d", test.status, recorder.Code)
			}
			if recorder.Body.String() != test.body {
				t.Errorf("expected body %s, got %s", test.body, recorder.Body.String())
			}
		})
	}
}

func TestRespondRecordsStatus(t *testing.T) {
	var values *ContextValues
	handler := Handler(func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
		values = ctx.Value(KeyValues).(*ContextValues)
		Respond(ctx, writer, map[string]bool{"success": true}, http.StatusCreated)
		return nil
	})
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

	if values == nil || values.StatusCode != http.StatusCreated || values.TraceID == "" {
		t.Fatalf("unexpected context values %+v", values)
	}
	if recorder.Header().Get("Content-Type") != "application/json" {
		t.Error("expected a json content type")
	}
	if recorder.Body.String() != `{"success":true}` {
		t.Errorf("unexpected body %s", recorder.Body.String())
	}
}

func TestRespondNoContent(t *testing.T) {
	recorder := httptest.NewRecorder()
	Respond(context.Background(), recorder, nil, http.StatusNoContent)
	if recorder.Code != http.StatusNoContent || recorder.Body.Len() != 0 {
		t.Errorf("unexpected response %d %q", recorder.Code, recorder.Body.String())
	}
}
