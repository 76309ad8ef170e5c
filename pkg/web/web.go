/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ctxKey int

// KeyValues is how request values are stored and retrieved
const KeyValues ctxKey = 1

// ContextValues carries per request state through the middleware chain
type ContextValues struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

// Handler is the signature every route handler and middleware uses
type Handler func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error

// ServeHTTP attaches the request values and renders any returned error
func (handler Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	values := ContextValues{
		TraceID: uuid.New(),
		Now:     time.Now(),
	}
	ctx := context.WithValue(request.Context(), KeyValues, &values)

	if err := handler(ctx, writer, request); err != nil {
		Error(ctx, writer, err)
	}
}

// RequestError is an error that maps to a specific http status
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// NewRequestError builds an error rendered as {"error": message} with the given status
func NewRequestError(status int, message string) error {
	return &RequestError{Status: status, Message: message}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error renders err, using the status of a RequestError when there is one
func Error(ctx context.Context, writer http.ResponseWriter, err error) {
	if requestErr, ok := errors.Cause(err).(*RequestError); ok {
		Respond(ctx, writer, ErrorResponse{Error: requestErr.Message}, requestErr.Status)
		return
	}

	logrus.WithFields(logrus.Fields{
		"Method": "web.Error",
		"Error":  err.Error(),
	}).Error("unhandled request error")
	Respond(ctx, writer, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError)
}

// Respond sends data to the client as JSON
func Respond(ctx context.Context, writer http.ResponseWriter, data interface{}, code int) {
	if values, ok := ctx.Value(KeyValues).(*ContextValues); ok {
		values.StatusCode = code
	}

	if code == http.StatusNoContent || data == nil {
		writer.WriteHeader(code)
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		logrus.Errorf("unable to marshal response: %v", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(code)
	if _, err := writer.Write(body); err != nil {
		logrus.Debugf("unable to write response: %v", err)
	}
}
