/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package camera

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/fitai/fitai-scan-service/pkg/capture"
	"github.com/fitai/fitai-scan-service/pkg/pose"
)

// Frame is a captured video frame plus the timings used by the debug overlay
type Frame struct {
	Mat gocv.Mat

	startTS     int64
	readTS      int64
	processedTS int64
}

func (frame *Frame) Size() (width, height int) {
	return frame.Mat.Cols(), frame.Mat.Rows()
}

func (frame *Frame) Close() error {
	return frame.Mat.Close()
}

// SourceOptions configures the capture device
type SourceOptions struct {
	Device     string
	Width      int
	Height     int
	FPS        float64
	FOURCC     string
	BufferSize int
}

// VideoSource reads frames from a webcam or stream url
type VideoSource struct {
	options SourceOptions

	mutex  sync.Mutex
	webcam *gocv.VideoCapture
}

func NewVideoSource(options SourceOptions) *VideoSource {
	return &VideoSource{options: options}
}

// codecToFloat64 returns a float64 representation of FourCC bytes for use with `gocv.VideoCaptureFOURCC`
func codecToFloat64(codec string) float64 {
	if len(codec) != 4 {
		return -1.0
	}
	c1 := []rune(string(codec[0]))[0]
	c2 := []rune(string(codec[1]))[0]
	c3 := []rune(string(codec[2]))[0]
	c4 := []rune(string(codec[3]))[0]
	return float64((c1 & 255) + ((c2 & 255) << 8) + ((c3 & 255) << 16) + ((c4 & 255) << 24))
}

func (source *VideoSource) Open() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic opening %s: %+v", source.options.Device, r)
		}
	}()

	logrus.Debug("Open()")
	source.mutex.Lock()
	defer source.mutex.Unlock()

	webcam, err := gocv.OpenVideoCapture(source.options.Device)
	if err != nil {
		return errors.Wrapf(err, "Error opening video capture device: %+v", source.options.Device)
	}

	// Note: the four cc must be set before any size or fps configuration
	if source.options.FOURCC != "" {
		webcam.Set(gocv.VideoCaptureFOURCC, codecToFloat64(source.options.FOURCC))
	}
	if source.options.Width != 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(source.options.Width))
	}
	if source.options.Height != 0 {
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(source.options.Height))
	}
	if source.options.FPS != 0 {
		webcam.Set(gocv.VideoCaptureFPS, source.options.FPS)
	}
	if source.options.BufferSize != 0 {
		webcam.Set(gocv.VideoCaptureBufferSize, float64(source.options.BufferSize))
	}

	// skip the first frame, it is often slow to arrive
	webcam.Grab(1)
	logrus.Debugf("input codec: %s", webcam.CodecString())

	source.webcam = webcam
	logrus.Debug("Open() completed")
	return nil
}

// Read blocks until the device delivers the next frame
func (source *VideoSource) Read(ctx context.Context) (pose.Frame, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	source.mutex.Lock()
	defer source.mutex.Unlock()
	if source.webcam == nil {
		return nil, capture.ErrSourceNotReady
	}

	frame := &Frame{Mat: gocv.NewMat(), startTS: unixMilliNow()}
	if ok := source.webcam.Read(&frame.Mat); !ok {
		safeClose(frame)
		return nil, fmt.Errorf("unable to read from webcam. device closed: %+v", source.options.Device)
	}
	frame.readTS = unixMilliNow()

	if frame.Mat.Empty() {
		logrus.Trace("skipping empty frame from webcam")
		safeClose(frame)
		return nil, capture.ErrSourceNotReady
	}
	return frame, nil
}

func (source *VideoSource) Close() error {
	source.mutex.Lock()
	defer source.mutex.Unlock()

	logrus.Debug("Close()")
	safeClose(source.webcam)
	source.webcam = nil
	return nil
}

func unixMilliNow() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

func safeClose(c io.Closer) {
	if c == nil {
		return
	}
	if v := reflect.ValueOf(c); v.Kind() == reflect.Ptr && v.IsNil() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("recovered from panic: %+v", r)
		}
	}()

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debugf("closing %v", reflect.TypeOf(c))
	}

	if err := c.Close(); err != nil {
		logrus.Errorf("error while attempting to close %v: %v", reflect.TypeOf(c), err)
	}
}
