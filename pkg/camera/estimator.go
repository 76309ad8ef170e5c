/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/fitai/fitai-scan-service/pkg/pose"
	"github.com/fitai/fitai-scan-service/pkg/pose/yolo"
)

// letterbox padding value used by the YOLO exports
const padValue = 114

// Estimator runs a YOLO pose model through the OpenCV dnn module
type Estimator struct {
	config yolo.Config

	mutex sync.Mutex
	net   gocv.Net
}

// NewEstimator loads an ONNX pose model
func NewEstimator(modelFile string, config yolo.Config) (*Estimator, error) {
	if config.InputSize <= 0 || config.InputSize%32 != 0 {
		return nil, fmt.Errorf("pose input size must be a positive multiple of 32, got %d", config.InputSize)
	}

	net := gocv.ReadNet(modelFile, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading network model %v", modelFile)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logrus.WithFields(logrus.Fields{
		"Method":    "NewEstimator",
		"Model":     modelFile,
		"InputSize": config.InputSize,
	}).Info("pose model loaded")
	return &Estimator{config: config, net: net}, nil
}

// EstimatePose returns the most confident person in the frame, or nil when nobody is visible
func (estimator *Estimator) EstimatePose(ctx context.Context, f pose.Frame) (*pose.Snapshot, error) {
	frame, ok := f.(*Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", f)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	width, height := frame.Size()
	size := estimator.config.InputSize
	lb := yolo.NewLetterbox(width, height, size)

	input := letterbox(frame.Mat, lb, size)
	defer safeClose(&input)

	blob := gocv.BlobFromImage(input, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer safeClose(&blob)

	estimator.mutex.Lock()
	estimator.net.SetInput(blob, "")
	output := estimator.net.Forward("")
	estimator.mutex.Unlock()
	defer safeClose(&output)

	dims := output.Size()
	if len(dims) != 3 {
		return nil, errors.Errorf("unexpected output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read network output")
	}

	detections, err := yolo.Decode(estimator.config, data, dims[1], dims[2], lb)
	if err != nil {
		return nil, err
	}
	frame.processedTS = unixMilliNow()
	return yolo.Best(detections, lb), nil
}

func (estimator *Estimator) Close() error {
	estimator.mutex.Lock()
	defer estimator.mutex.Unlock()
	return estimator.net.Close()
}

// letterbox scales src into the top left corner of a square padded image
func letterbox(src gocv.Mat, lb yolo.Letterbox, size int) gocv.Mat {
	scaledW := int(float32(lb.OrigW) * lb.Scale)
	scaledH := int(float32(lb.OrigH) * lb.Scale)
	if scaledW > size {
		scaledW = size
	}
	if scaledH > size {
		scaledH = size
	}

	resized := gocv.NewMat()
	defer safeClose(&resized)
	gocv.Resize(src, &resized, image.Pt(scaledW, scaledH), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(padValue, padValue, padValue, 0), size, size, gocv.MatTypeCV8UC3)
	region := padded.Region(image.Rect(0, 0, scaledW, scaledH))
	resized.CopyTo(&region)
	safeClose(&region)
	return padded
}
