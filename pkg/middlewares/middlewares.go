/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/fitai/fitai-scan-service/pkg/web"
)

// MaxBodyBytes bounds every request body read by a handler
var MaxBodyBytes int64 = 1 << 20

// Recover turns a panicking handler into a 500 response
func Recover(next web.Handler) web.Handler {
	return func(ctx context.Context, writer http.ResponseWriter, request *http.Request) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"Method": "middlewares.Recover",
					"Path":   request.URL.Path,
				}).Errorf("recovered from panic: %+v\n%s", r, debug.Stack())
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return next(ctx, writer, request)
	}
}

// Logger writes one line per request once the handler has finished
func Logger(next web.Handler) web.Handler {
	return func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
		err := next(ctx, writer, request)

		fields := logrus.Fields{
			"Method": request.Method,
			"Path":   request.URL.Path,
		}
		if values, ok := ctx.Value(web.KeyValues).(*web.ContextValues); ok {
			fields["TraceID"] = values.TraceID
			fields["Status"] = values.StatusCode
			fields["Duration"] = time.Since(values.Now).String()
		}
		logrus.WithFields(fields).Debug("request handled")
		return err
	}
}

// Bodylimiter caps the request body at MaxBodyBytes
func Bodylimiter(next web.Handler) web.Handler {
	return func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
		if request.Body != nil {
			request.Body = http.MaxBytesReader(writer, request.Body, MaxBodyBytes)
		}
		return next(ctx, writer, request)
	}
}

// CORS sets the cross origin headers for origin. Preflight requests are
// answered here and never reach next.
func CORS(origin string, next web.Handler) web.Handler {
	policy := cors.New(cors.Options{
		AllowedOrigins:       []string{origin},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		OptionsSuccessStatus: http.StatusOK,
	})
	return func(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
		var err error
		policy.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err = next(ctx, w, r)
		})).ServeHTTP(writer, request)
		return err
	}
}
