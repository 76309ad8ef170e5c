/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fitai/fitai-scan-service/pkg/capture"
	"github.com/fitai/fitai-scan-service/pkg/web"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Capture controls the camera session
type Capture interface {
	Start(ctx context.Context) error
	Stop() error
	Status() capture.Status
	CalibrateCard() capture.Calibration
	CalibrateHeight(knownHeightCm float64) (capture.Calibration, error)
	Subscribe() (<-chan capture.Status, func())
}

type calibrateRequest struct {
	KnownHeightCm float64 `json:"knownHeightCm"`
}

// StartCapture opens the camera and runs a capture session until stopped
func (handler *Handler) StartCapture(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	sessionCtx := handler.Context
	if sessionCtx == nil {
		sessionCtx = context.Background()
	}

	err := handler.Capture.Start(sessionCtx)
	if errors.Cause(err) == capture.ErrSessionActive {
		return web.NewRequestError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return web.NewRequestError(http.StatusInternalServerError, "Camera error: "+err.Error())
	}
	web.Respond(ctx, writer, handler.Capture.Status(), http.StatusAccepted)
	return nil
}

// StopCapture ends the running session
func (handler *Handler) StopCapture(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	err := handler.Capture.Stop()
	if errors.Cause(err) == capture.ErrNotRunning {
		return web.NewRequestError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	web.Respond(ctx, writer, handler.Capture.Status(), http.StatusOK)
	return nil
}

// CaptureStatus returns the session status, prompt and countdown
//nolint:unparam
func (handler *Handler) CaptureStatus(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	web.Respond(ctx, writer, handler.Capture.Status(), http.StatusOK)
	return nil
}

// CalibrateCard applies the card calibration
//nolint:unparam
func (handler *Handler) CalibrateCard(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	web.Respond(ctx, writer, handler.Capture.CalibrateCard(), http.StatusOK)
	return nil
}

// CalibrateHeight calibrates from the latest pose and an optional known height
func (handler *Handler) CalibrateHeight(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	var body calibrateRequest
	if err := decode(request, &body); err != nil {
		return err
	}
	if body.KnownHeightCm < 0 {
		return web.NewRequestError(http.StatusBadRequest, "knownHeightCm must be positive")
	}

	calibration, err := handler.Capture.CalibrateHeight(body.KnownHeightCm)
	switch errors.Cause(err) {
	case nil:
	case capture.ErrNoSubject, capture.ErrUnreliableLandmarks:
		return web.NewRequestError(http.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
	web.Respond(ctx, writer, calibration, http.StatusOK)
	return nil
}

func (handler *Handler) upgrader() *websocket.Upgrader {
	origin := handler.CORSOrigin
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(request *http.Request) bool {
			if origin == "" || origin == "*" {
				return true
			}
			return request.Header.Get("Origin") == origin
		},
	}
}

// CaptureSocket streams every status change over a websocket, starting with the current one
func (handler *Handler) CaptureSocket(ctx context.Context, writer http.ResponseWriter, request *http.Request) error {
	conn, err := handler.upgrader().Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already replied to the client
		logrus.Debugf("websocket upgrade failed: %v", err)
		return nil
	}
	defer conn.Close()

	updates, unsubscribe := handler.Capture.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logrus.Debugf("websocket closed: %v", err)
				}
				return
			}
		}
	}()

	send := func(status capture.Status) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(status)
	}
	if err := send(handler.Capture.Status()); err != nil {
		return nil
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case status, ok := <-updates:
			if !ok {
				return nil
			}
			if err := send(status); err != nil {
				logrus.Debugf("websocket write failed: %v", err)
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
